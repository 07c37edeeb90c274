package repository

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrAlreadyPersisted = errors.New("user already persisted")
)
