package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/noah-isme/ebulletin-go-api/internal/dto"
)

// NATSAuditPublisher publishes persisted audit entries as JSON on a NATS subject.
type NATSAuditPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSAuditPublisher returns nil when no connection is configured.
func NewNATSAuditPublisher(conn *nats.Conn, subject string) *NATSAuditPublisher {
	if conn == nil {
		return nil
	}
	if subject == "" {
		subject = "ebulletin.audit"
	}
	return &NATSAuditPublisher{conn: conn, subject: subject}
}

// Publish implements AuditPublisher.
func (p *NATSAuditPublisher) Publish(ctx context.Context, entry dto.AuditLogResponse) error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	msg := nats.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set("Audit-Action", entry.ActionType)
	msg.Header.Set("Audit-Table", entry.TargetTable)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
