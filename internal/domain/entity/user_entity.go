package entity

import (
	"strings"
	"time"
)

// AuditInfo records who created and last changed a user row.
type AuditInfo struct {
	Creator     string
	DateCreated time.Time
	ChangedBy   *string
	DateChanged *time.Time
}

// VoidInfo is the soft-delete state of a user.
// A voided user is hidden from active lookups but keeps its audit history.
type VoidInfo struct {
	Voided     bool
	VoidReason string
	VoidedBy   *string
	DateVoided *time.Time
}

// User is the aggregate root for the user registry.
// PasswordHash holds a bcrypt hash and is never serialized to clients.
type User struct {
	ID           string
	SystemID     string
	Username     string
	GivenName    string
	MiddleName   string
	FamilyName   string
	PasswordHash string
	Audit        AuditInfo
	Void         VoidInfo
	Roles        []Role
}

// IsNew reports whether the user was never created, i.e. has no creator recorded.
func (u *User) IsNew() bool {
	return u.Audit.Creator == ""
}

func (u *User) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.GivenName, u.MiddleName, u.FamilyName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// MarkVoided flags the user as voided by actor. An empty actor leaves VoidedBy unset.
func (u *User) MarkVoided(actor, reason string, at time.Time) {
	u.Void.Voided = true
	u.Void.VoidReason = reason
	u.Void.VoidedBy = nil
	if actor != "" {
		a := actor
		u.Void.VoidedBy = &a
	}
	t := at
	u.Void.DateVoided = &t
}

// ClearVoid is the exact inverse of MarkVoided.
func (u *User) ClearVoid() {
	u.Void = VoidInfo{}
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// AddRole appends r unless a role with the same name is already assigned.
func (u *User) AddRole(r Role) bool {
	if u.HasRole(r.Name) {
		return false
	}
	u.Roles = append(u.Roles, r)
	return true
}

func (u *User) RemoveRole(name string) bool {
	for i, r := range u.Roles {
		if r.Name == name {
			u.Roles = append(u.Roles[:i:i], u.Roles[i+1:]...)
			return true
		}
	}
	return false
}

// RoleNames returns the names of the assigned roles in assignment order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
