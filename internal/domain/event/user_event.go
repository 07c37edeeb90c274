package event

import (
	"time"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
)

type Type string

const (
	UserCreated     Type = "user.created"
	UserUpdated     Type = "user.updated"
	UserVoided      Type = "user.voided"
	UserUnvoided    Type = "user.unvoided"
	UserDeleted     Type = "user.deleted"
	UserRoleGranted Type = "user.role_granted"
	UserRoleRevoked Type = "user.role_revoked"
)

// UserSnapshot is the JSON view of a user carried on the event bus.
// It never includes the password hash.
type UserSnapshot struct {
	ID          string     `json:"id"`
	SystemID    string     `json:"system_id"`
	Username    string     `json:"username"`
	GivenName   string     `json:"given_name"`
	MiddleName  string     `json:"middle_name,omitempty"`
	FamilyName  string     `json:"family_name"`
	Roles       []string   `json:"roles"`
	Creator     string     `json:"creator"`
	DateCreated time.Time  `json:"date_created"`
	ChangedBy   *string    `json:"changed_by,omitempty"`
	DateChanged *time.Time `json:"date_changed,omitempty"`
	Voided      bool       `json:"voided"`
	VoidReason  string     `json:"void_reason,omitempty"`
	VoidedBy    *string    `json:"voided_by,omitempty"`
	DateVoided  *time.Time `json:"date_voided,omitempty"`
}

// UserEvent is published after a user write has committed.
type UserEvent struct {
	ID         string       `json:"id"`
	Type       Type         `json:"type"`
	Actor      string       `json:"actor,omitempty"`
	Role       string       `json:"role,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
	User       UserSnapshot `json:"user"`
}

func Snapshot(u *entity.User) UserSnapshot {
	return UserSnapshot{
		ID:          u.ID,
		SystemID:    u.SystemID,
		Username:    u.Username,
		GivenName:   u.GivenName,
		MiddleName:  u.MiddleName,
		FamilyName:  u.FamilyName,
		Roles:       u.RoleNames(),
		Creator:     u.Audit.Creator,
		DateCreated: u.Audit.DateCreated,
		ChangedBy:   u.Audit.ChangedBy,
		DateChanged: u.Audit.DateChanged,
		Voided:      u.Void.Voided,
		VoidReason:  u.Void.VoidReason,
		VoidedBy:    u.Void.VoidedBy,
		DateVoided:  u.Void.DateVoided,
	}
}

// Audited reports whether the event type should trigger an audit notification.
func (t Type) Audited() bool {
	switch t {
	case UserVoided, UserDeleted, UserRoleGranted, UserRoleRevoked:
		return true
	}
	return false
}
