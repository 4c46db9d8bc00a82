package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRevoker tracks logged-out tokens until they would have expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	RevokeAllBefore(ctx context.Context, principal string, cutoff time.Time, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID, principal string, issuedAt time.Time) (bool, error)
}

// PrincipalKey identifies an actor across tokens.
func PrincipalKey(actor Actor) string {
	if actor.ID == nil {
		return string(actor.Kind)
	}
	return fmt.Sprintf("%s:%d", actor.Kind, *actor.ID)
}

type redisTokenRevoker struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisTokenRevoker stores revocations in Redis so every replica sees them.
func NewRedisTokenRevoker(client *redis.Client) TokenRevoker {
	return &redisTokenRevoker{client: client, now: time.Now}
}

func (r *redisTokenRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedTokenKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *redisTokenRevoker) RevokeAllBefore(ctx context.Context, principal string, cutoff time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	value := strconv.FormatInt(cutoff.Unix(), 10)
	if err := r.client.Set(ctx, revokedBeforeKey(principal), value, ttl).Err(); err != nil {
		return fmt.Errorf("revoke principal tokens: %w", err)
	}
	return nil
}

func (r *redisTokenRevoker) IsRevoked(ctx context.Context, tokenID, principal string, issuedAt time.Time) (bool, error) {
	if tokenID != "" {
		exists, err := r.client.Exists(ctx, revokedTokenKey(tokenID)).Result()
		if err != nil {
			return false, fmt.Errorf("check token revocation: %w", err)
		}
		if exists > 0 {
			return true, nil
		}
	}

	raw, err := r.client.Get(ctx, revokedBeforeKey(principal)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check principal revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, nil
	}
	return issuedAt.Unix() <= cutoff, nil
}

type memoryTokenRevoker struct {
	mu            sync.Mutex
	tokens        map[string]time.Time
	revokedBefore map[string]time.Time
	now           func() time.Time
}

// NewMemoryTokenRevoker keeps revocations in process memory. Used when Redis is not configured.
func NewMemoryTokenRevoker() TokenRevoker {
	return &memoryTokenRevoker{
		tokens:        make(map[string]time.Time),
		revokedBefore: make(map[string]time.Time),
		now:           time.Now,
	}
}

func (m *memoryTokenRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	m.tokens[tokenID] = expiresAt
	return nil
}

func (m *memoryTokenRevoker) RevokeAllBefore(_ context.Context, principal string, cutoff time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedBefore[principal] = cutoff
	return nil
}

func (m *memoryTokenRevoker) IsRevoked(_ context.Context, tokenID, principal string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiresAt, ok := m.tokens[tokenID]; ok && m.now().Before(expiresAt) {
		return true, nil
	}
	if cutoff, ok := m.revokedBefore[principal]; ok && issuedAt.Unix() <= cutoff.Unix() {
		return true, nil
	}
	return false, nil
}

func (m *memoryTokenRevoker) prune() {
	now := m.now()
	for id, expiresAt := range m.tokens {
		if !now.Before(expiresAt) {
			delete(m.tokens, id)
		}
	}
}

func revokedTokenKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

func revokedBeforeKey(principal string) string {
	return "auth:revoked_before:" + principal
}
