package entity

// Privilege is an atomic permission. The registry only lists them.
type Privilege struct {
	Name        string
	Description string
}
