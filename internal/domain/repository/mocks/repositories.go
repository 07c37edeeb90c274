// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/internal/domain/repository"
)

type UserRepository struct{ mock.Mock }

func (m *UserRepository) CreateUser(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *UserRepository) GetUser(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entity.User)
	return u, args.Error(1)
}

func (m *UserRepository) UpdateUser(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) VoidUser(ctx context.Context, u *entity.User, reason string) error {
	return m.Called(ctx, u, reason).Error(0)
}

func (m *UserRepository) UnvoidUser(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) DeleteUser(ctx context.Context, u *entity.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserRepository) GrantUserRole(ctx context.Context, u *entity.User, r entity.Role) error {
	return m.Called(ctx, u, r).Error(0)
}

func (m *UserRepository) RevokeUserRole(ctx context.Context, u *entity.User, r entity.Role) error {
	return m.Called(ctx, u, r).Error(0)
}

func (m *UserRepository) GetRole(ctx context.Context, name string) (*entity.Role, error) {
	args := m.Called(ctx, name)
	r, _ := args.Get(0).(*entity.Role)
	return r, args.Error(1)
}

func (m *UserRepository) GetRoles(ctx context.Context) ([]entity.Role, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).([]entity.Role)
	return r, args.Error(1)
}

func (m *UserRepository) GetPrivileges(ctx context.Context) ([]entity.Privilege, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]entity.Privilege)
	return p, args.Error(1)
}

type PatientRepository struct{ mock.Mock }

func (m *PatientRepository) FindPatient(ctx context.Context, pattern string) ([]entity.PatientMatch, error) {
	args := m.Called(ctx, pattern)
	p, _ := args.Get(0).([]entity.PatientMatch)
	return p, args.Error(1)
}

var (
	_ repository.UserRepository    = (*UserRepository)(nil)
	_ repository.PatientRepository = (*PatientRepository)(nil)
)
