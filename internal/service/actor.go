package service

import (
	"strings"

	"github.com/noah-isme/ebulletin-go-api/internal/models"
)

// ActorKind tags which account table an actor belongs to.
type ActorKind string

const (
	ActorAdmin   ActorKind = models.AuditUserAdmin
	ActorStudent ActorKind = models.AuditUserStudent
	ActorSystem  ActorKind = models.AuditUserSystem
)

// Actor is the principal an action is attributed to. It is built once by the
// authentication layer and carried unchanged into the audit trail.
type Actor struct {
	Kind          ActorKind `json:"kind"`
	ID            *uint     `json:"id,omitempty"`
	Email         string    `json:"email,omitempty"`
	StudentNumber string    `json:"student_number,omitempty"`
	Position      string    `json:"position,omitempty"`
}

// SystemActor attributes an action to the service itself.
func SystemActor() Actor {
	return Actor{Kind: ActorSystem}
}

// AdminActor builds an admin principal.
func AdminActor(id uint, email, position string) Actor {
	return Actor{Kind: ActorAdmin, ID: &id, Email: email, Position: position}
}

// StudentActor builds a student principal.
func StudentActor(id uint, studentNumber, email string) Actor {
	return Actor{Kind: ActorStudent, ID: &id, StudentNumber: studentNumber, Email: email}
}

// Label returns the identifier used in audit descriptions.
func (a Actor) Label() string {
	if email := strings.TrimSpace(a.Email); email != "" {
		return email
	}
	if number := strings.TrimSpace(a.StudentNumber); number != "" {
		return number
	}
	if a.Kind == ActorSystem {
		return "System"
	}
	return "Unknown user"
}

// UserType maps the actor onto audit_logs.user_type.
func (a Actor) UserType() string {
	switch a.Kind {
	case ActorAdmin, ActorStudent, ActorSystem:
		return string(a.Kind)
	default:
		return models.AuditUserSystem
	}
}

// UserID returns the account id, which is always nil for system actors.
func (a Actor) UserID() *uint {
	if a.Kind == ActorSystem || a.ID == nil {
		return nil
	}
	id := *a.ID
	return &id
}

// IsAdmin reports whether the actor is an admin account.
func (a Actor) IsAdmin() bool {
	return a.Kind == ActorAdmin
}

// IsSuperAdmin reports whether the actor holds the super_admin position.
func (a Actor) IsSuperAdmin() bool {
	return a.Kind == ActorAdmin && strings.EqualFold(strings.TrimSpace(a.Position), models.AdminPositionSuperAdmin)
}
