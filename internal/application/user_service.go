package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/internal/domain/event"
	"github.com/oksasatya/medrecords-users/internal/domain/identity"
	repo "github.com/oksasatya/medrecords-users/internal/domain/repository"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/search"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrSearchDisabled   = errors.New("user search is not configured")
)

// EventPublisher puts user lifecycle events on the bus.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserSearcher queries the user directory read model.
type UserSearcher interface {
	Search(ctx context.Context, q string, size int) ([]search.UserDocument, error)
}

type Service struct {
	Repo     repo.UserRepository
	Patients repo.PatientRepository
	Events   EventPublisher
	Search   UserSearcher
	Logger   *logrus.Logger
	now      func() time.Time
}

func NewService(users repo.UserRepository, patients repo.PatientRepository, events EventPublisher, searcher UserSearcher, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		Repo:     users,
		Patients: patients,
		Events:   events,
		Search:   searcher,
		Logger:   logger,
		now:      time.Now,
	}
}

type CreateUserInput struct {
	Username   string
	SystemID   string
	GivenName  string
	MiddleName string
	FamilyName string
	Password   string
	Roles      []string
}

// UpdateUserInput changes only the fields that are non-nil.
type UpdateUserInput struct {
	Username   *string
	GivenName  *string
	MiddleName *string
	FamilyName *string
	Password   *string
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	u := &entity.User{
		Username:   username,
		SystemID:   strings.TrimSpace(in.SystemID),
		GivenName:  in.GivenName,
		MiddleName: in.MiddleName,
		FamilyName: in.FamilyName,
	}
	for _, name := range in.Roles {
		role, err := s.Repo.GetRole(ctx, name)
		if err != nil {
			return nil, err
		}
		u.AddRole(*role)
	}
	if in.Password != "" {
		hash, err := helpers.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.Repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, event.UserCreated, u, "", "")
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.Repo.GetUser(ctx, id)
}

// GetUserByUsername returns (nil, nil) when no active user has the username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	return s.Repo.GetUserByUsername(ctx, strings.TrimSpace(username))
}

func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return nil, ErrUsernameRequired
		}
		u.Username = name
	}
	if in.GivenName != nil {
		u.GivenName = *in.GivenName
	}
	if in.MiddleName != nil {
		u.MiddleName = *in.MiddleName
	}
	if in.FamilyName != nil {
		u.FamilyName = *in.FamilyName
	}
	if in.Password != nil {
		hash, err := helpers.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if err := s.Repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, event.UserUpdated, u, "", "")
	return u, nil
}

func (s *Service) VoidUser(ctx context.Context, id, reason string) (*entity.User, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.VoidUser(ctx, u, reason); err != nil {
		return nil, err
	}
	s.publish(ctx, event.UserVoided, u, "", reason)
	return u, nil
}

func (s *Service) UnvoidUser(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.UnvoidUser(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, event.UserUnvoided, u, "", "")
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteUser(ctx, u); err != nil {
		return err
	}
	s.publish(ctx, event.UserDeleted, u, "", "")
	return nil
}

func (s *Service) GrantRole(ctx context.Context, id, roleName string) (*entity.User, error) {
	u, role, err := s.userAndRole(ctx, id, roleName)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.GrantUserRole(ctx, u, *role); err != nil {
		return nil, err
	}
	s.publish(ctx, event.UserRoleGranted, u, role.Name, "")
	return u, nil
}

func (s *Service) RevokeRole(ctx context.Context, id, roleName string) (*entity.User, error) {
	u, role, err := s.userAndRole(ctx, id, roleName)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RevokeUserRole(ctx, u, *role); err != nil {
		return nil, err
	}
	s.publish(ctx, event.UserRoleRevoked, u, role.Name, "")
	return u, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]entity.Role, error) {
	return s.Repo.GetRoles(ctx)
}

func (s *Service) ListPrivileges(ctx context.Context) ([]entity.Privilege, error) {
	return s.Repo.GetPrivileges(ctx)
}

// FindPatient matches patient family names; pattern may contain SQL LIKE wildcards.
func (s *Service) FindPatient(ctx context.Context, pattern string) ([]entity.PatientMatch, error) {
	return s.Patients.FindPatient(ctx, pattern)
}

func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]search.UserDocument, error) {
	if s.Search == nil {
		return nil, ErrSearchDisabled
	}
	return s.Search.Search(ctx, q, size)
}

func (s *Service) userAndRole(ctx context.Context, id, roleName string) (*entity.User, *entity.Role, error) {
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	role, err := s.Repo.GetRole(ctx, roleName)
	if err != nil {
		return nil, nil, err
	}
	return u, role, nil
}

// publish runs after the unit of work has committed, so a failure is only logged.
func (s *Service) publish(ctx context.Context, typ event.Type, u *entity.User, role, reason string) {
	if s.Events == nil {
		return
	}
	actor, _ := identity.ActorFrom(ctx)
	ev := event.UserEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Actor:      actor,
		Role:       role,
		Reason:     reason,
		OccurredAt: s.now().UTC(),
		User:       event.Snapshot(u),
	}
	if err := s.Events.PublishJSON(ctx, ev); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"event": typ, "user_id": u.ID}).Warn("publish user event failed")
	}
}
