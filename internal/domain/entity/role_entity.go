package entity

// Role is a named grouping of privileges.
// Many-to-many with User via user_role, keyed by name.
type Role struct {
	Name        string
	Description string
	Privileges  []Privilege
}
