package repository

import (
	"context"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
)

// UserRepository defines persistence operations for users, roles and privileges.
// Each call runs in its own unit of work.
type UserRepository interface {
	CreateUser(ctx context.Context, u *entity.User) error
	// GetUserByUsername returns (nil, nil) when no active user has that username.
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	// GetUser returns ErrUserNotFound when the id does not exist.
	GetUser(ctx context.Context, id string) (*entity.User, error)
	UpdateUser(ctx context.Context, u *entity.User) error
	VoidUser(ctx context.Context, u *entity.User, reason string) error
	UnvoidUser(ctx context.Context, u *entity.User) error
	DeleteUser(ctx context.Context, u *entity.User) error
	GrantUserRole(ctx context.Context, u *entity.User, r entity.Role) error
	RevokeUserRole(ctx context.Context, u *entity.User, r entity.Role) error
	GetRole(ctx context.Context, name string) (*entity.Role, error)
	GetRoles(ctx context.Context) ([]entity.Role, error)
	GetPrivileges(ctx context.Context) ([]entity.Privilege, error)
}
