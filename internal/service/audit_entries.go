package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

// The builders below apply the description templates of each entry kind. They are
// shared by the service helpers and the HTTP audit middleware.

// AuthEntry builds a login or logout entry against the authentication table.
func AuthEntry(event AuthEvent) LogActionInput {
	outcome := "failed"
	if event.Success {
		outcome = "successful"
	}
	identifier := strings.TrimSpace(event.Identifier)
	if identifier == "" {
		identifier = event.Actor.Label()
	}

	description := fmt.Sprintf("%s %s for %s.", strings.ToUpper(event.Action), outcome, identifier)
	if reason := strings.TrimSpace(event.Reason); reason != "" {
		description = fmt.Sprintf("%s %s", description, reason)
	}

	details := map[string]interface{}{"success": event.Success}
	if event.Reason != "" {
		details["reason"] = event.Reason
	}

	return LogActionInput{
		Actor:       event.Actor,
		ActionType:  event.Action,
		TargetTable: "authentication",
		TargetID:    event.Actor.UserID(),
		NewValues:   details,
		Description: description,
		Request:     event.Request,
	}
}

// CRUDEntry builds an entry for a plain create/read/update/delete on a table.
func CRUDEntry(event AuditEvent) LogActionInput {
	if event.Description == "" {
		event.Description = fmt.Sprintf("%s %s %s record%s", event.Actor.Label(), crudVerb(event.Action), event.Table, idSuffix(" ID ", event.TargetID))
	}
	return event.Input()
}

// AdminEntry builds an entry for an administrative action.
func AdminEntry(event AuditEvent) LogActionInput {
	if event.Description == "" {
		event.Description = fmt.Sprintf("Admin %s performed %s on %s%s", event.Actor.Label(), strings.ToUpper(event.Action), event.Table, idSuffix("(ID: ", event.TargetID))
	}
	return event.Input()
}

// StudentEntry builds an entry for an action on a student record.
func StudentEntry(event AuditEvent) LogActionInput {
	if event.Description == "" {
		event.Description = fmt.Sprintf("%s performed %s on student record%s", event.Actor.Label(), strings.ToUpper(event.Action), idSuffix("(ID: ", event.TargetID))
	}
	if event.Table == "" {
		event.Table = "students"
	}
	return event.Input()
}

// ContentEntry builds an entry for an action on published content.
func ContentEntry(event AuditEvent) LogActionInput {
	if event.Description == "" {
		event.Description = fmt.Sprintf("%s performed %s on %s content%s", event.Actor.Label(), strings.ToUpper(event.Action), event.Table, idSuffix("(ID: ", event.TargetID))
	}
	return event.Input()
}

// FileEntry builds an entry for a file operation.
func FileEntry(actor Actor, action string, file FileInfo, meta *RequestMeta) LogActionInput {
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = "unknown file"
	}
	return LogActionInput{
		Actor:       actor,
		ActionType:  action,
		TargetTable: "files",
		NewValues:   file,
		Description: fmt.Sprintf("%s performed %s on file: %s", actor.Label(), strings.ToUpper(action), name),
		Request:     meta,
	}
}

// SystemEntry builds an entry attributed to the service itself.
func SystemEntry(action, description string, details interface{}) LogActionInput {
	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("System performed %s", strings.ToUpper(action))
	}
	return LogActionInput{
		Actor:       SystemActor(),
		ActionType:  action,
		TargetTable: "system",
		NewValues:   details,
		Description: description,
		IPAddress:   "system",
		UserAgent:   "system",
	}
}

// SecurityEntry builds a security event entry. Severity defaults to medium.
func SecurityEntry(event, severity string, details interface{}, meta *RequestMeta) LogActionInput {
	severity = strings.ToLower(strings.TrimSpace(severity))
	if severity == "" {
		severity = "medium"
	}
	payload := map[string]interface{}{
		"event":    event,
		"severity": severity,
	}
	if details != nil {
		payload["details"] = details
	}
	return LogActionInput{
		Actor:       SystemActor(),
		ActionType:  models.AuditActionSecurityEvent,
		TargetTable: "security",
		NewValues:   payload,
		Description: fmt.Sprintf("Security event: %s (severity: %s)", event, severity),
		Request:     meta,
	}
}
