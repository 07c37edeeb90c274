package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/internal/domain/identity"
	"github.com/oksasatya/medrecords-users/internal/domain/repository"
)

const userColumns = `user_id, system_id, username, given_name, middle_name, family_name, password_hash,
	creator, date_created, changed_by, date_changed, voided, void_reason, voided_by, date_voided`

type UserRepository struct {
	uow    *UnitOfWork
	actors identity.Provider
	logger *logrus.Logger
	now    func() time.Time
}

func NewUserRepository(uow *UnitOfWork, actors identity.Provider, logger *logrus.Logger) *UserRepository {
	if actors == nil {
		actors = identity.ContextProvider{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &UserRepository{uow: uow, actors: actors, logger: logger, now: time.Now}
}

// CreateUser stamps the creation audit fields and inserts u with its roles.
// Without an authenticated actor the user is recorded as its own creator.
// u is only modified once the transaction has committed.
func (r *UserRepository) CreateUser(ctx context.Context, u *entity.User) error {
	if u.ID != "" {
		return fmt.Errorf("%w: %s", repository.ErrAlreadyPersisted, u.ID)
	}

	draft := *u
	draft.ID = uuid.NewString()
	draft.Audit.DateCreated = r.now()
	if actor, ok := r.actors.AuthenticatedUser(ctx); ok {
		draft.Audit.Creator = actor
	} else {
		draft.Audit.Creator = draft.ID
	}
	if draft.SystemID == "" {
		draft.SystemID = draft.Username
	}

	err := r.uow.InTx(ctx, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, &draft); err != nil {
			return err
		}
		return syncUserRoles(ctx, tx, draft.ID, draft.RoleNames())
	})
	if err != nil {
		return err
	}

	*u = draft
	return nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	var u *entity.User
	err := r.uow.InReadTx(ctx, func(tx pgx.Tx) error {
		found, err := scanUser(tx.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE NOT voided AND username = $1
			ORDER BY date_created
			LIMIT 1
		`, username))
		if err != nil {
			return err
		}
		if found.Roles, err = userRoles(ctx, tx, found.ID); err != nil {
			return err
		}
		u = found
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.WithField("username", username).Warn("request for username not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		r.logger.WithField("user_id", id).Warn("request for user not found")
		return nil, fmt.Errorf("%w: %s", repository.ErrUserNotFound, id)
	}

	var u *entity.User
	err := r.uow.InReadTx(ctx, func(tx pgx.Tx) error {
		found, err := scanUser(tx.QueryRow(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE user_id = $1
		`, id))
		if err != nil {
			return err
		}
		if found.Roles, err = userRoles(ctx, tx, found.ID); err != nil {
			return err
		}
		u = found
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.WithField("user_id", id).Warn("request for user not found")
		return nil, fmt.Errorf("%w: %s", repository.ErrUserNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUser creates u when it was never created. Otherwise it persists the
// changes with every deferred constraint checked inside this call.
func (r *UserRepository) UpdateUser(ctx context.Context, u *entity.User) error {
	if u.IsNew() {
		return r.CreateUser(ctx, u)
	}
	r.logger.WithField("user_id", u.ID).Debug("update user")
	return r.persist(ctx, u, true)
}

func (r *UserRepository) VoidUser(ctx context.Context, u *entity.User, reason string) error {
	actor, _ := r.actors.AuthenticatedUser(ctx)
	u.MarkVoided(actor, reason, r.now())
	return r.UpdateUser(ctx, u)
}

func (r *UserRepository) UnvoidUser(ctx context.Context, u *entity.User) error {
	u.ClearVoid()
	return r.UpdateUser(ctx, u)
}

// DeleteUser removes the row for good. Role links go with it.
func (r *UserRepository) DeleteUser(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user has no id", repository.ErrUserNotFound)
	}
	return r.uow.InTx(ctx, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, u.ID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", repository.ErrUserNotFound, u.ID)
		}
		return nil
	})
}

func (r *UserRepository) GrantUserRole(ctx context.Context, u *entity.User, role entity.Role) error {
	u.AddRole(role)
	return r.saveOrUpdate(ctx, u)
}

func (r *UserRepository) RevokeUserRole(ctx context.Context, u *entity.User, role entity.Role) error {
	u.RemoveRole(role.Name)
	return r.saveOrUpdate(ctx, u)
}

func (r *UserRepository) GetRole(ctx context.Context, name string) (*entity.Role, error) {
	var roles []entity.Role
	err := r.uow.InReadTx(ctx, func(tx pgx.Tx) error {
		var err error
		roles, err = queryRoles(ctx, tx, `WHERE r.role = $1`, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrRoleNotFound, name)
	}
	return &roles[0], nil
}

func (r *UserRepository) GetRoles(ctx context.Context) ([]entity.Role, error) {
	var roles []entity.Role
	err := r.uow.InReadTx(ctx, func(tx pgx.Tx) error {
		var err error
		roles, err = queryRoles(ctx, tx, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *UserRepository) GetPrivileges(ctx context.Context) ([]entity.Privilege, error) {
	privileges := make([]entity.Privilege, 0)
	err := r.uow.InReadTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT privilege, description FROM privilege`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var p entity.Privilege
			if err := rows.Scan(&p.Name, &p.Description); err != nil {
				return err
			}
			privileges = append(privileges, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return privileges, nil
}

// saveOrUpdate inserts a new user or rewrites an existing one without the
// immediate constraint check UpdateUser performs.
func (r *UserRepository) saveOrUpdate(ctx context.Context, u *entity.User) error {
	if u.IsNew() {
		return r.CreateUser(ctx, u)
	}
	return r.persist(ctx, u, false)
}

func (r *UserRepository) persist(ctx context.Context, u *entity.User, immediate bool) error {
	draft := *u
	now := r.now()
	draft.Audit.DateChanged = &now
	draft.Audit.ChangedBy = nil
	if actor, ok := r.actors.AuthenticatedUser(ctx); ok {
		draft.Audit.ChangedBy = &actor
	}

	err := r.uow.InTx(ctx, func(tx pgx.Tx) error {
		if immediate {
			if _, err := tx.Exec(ctx, `SET CONSTRAINTS ALL IMMEDIATE`); err != nil {
				return err
			}
		}
		res, err := tx.Exec(ctx, `
			UPDATE users
			SET system_id = $2, username = $3, given_name = $4, middle_name = $5, family_name = $6,
				password_hash = $7, changed_by = $8, date_changed = $9,
				voided = $10, void_reason = $11, voided_by = $12, date_voided = $13
			WHERE user_id = $1
		`, draft.ID, draft.SystemID, draft.Username, draft.GivenName, draft.MiddleName, draft.FamilyName,
			draft.PasswordHash, draft.Audit.ChangedBy, draft.Audit.DateChanged,
			draft.Void.Voided, draft.Void.VoidReason, draft.Void.VoidedBy, draft.Void.DateVoided)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", repository.ErrUserNotFound, draft.ID)
		}
		return syncUserRoles(ctx, tx, draft.ID, draft.RoleNames())
	})
	if err != nil {
		return err
	}

	u.Audit = draft.Audit
	return nil
}

func insertUser(ctx context.Context, tx pgx.Tx, u *entity.User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, u.ID, u.SystemID, u.Username, u.GivenName, u.MiddleName, u.FamilyName, u.PasswordHash,
		u.Audit.Creator, u.Audit.DateCreated, u.Audit.ChangedBy, u.Audit.DateChanged,
		u.Void.Voided, u.Void.VoidReason, u.Void.VoidedBy, u.Void.DateVoided)
	return err
}

// syncUserRoles makes user_role for userID match names exactly.
func syncUserRoles(ctx context.Context, tx pgx.Tx, userID string, names []string) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM user_role
		WHERE user_id = $1 AND NOT (role = ANY($2::varchar[]))
	`, userID, names); err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO user_role (user_id, role)
		SELECT $1, unnest($2::varchar[])
		ON CONFLICT (user_id, role) DO NOTHING
	`, userID, names)
	return err
}

func userRoles(ctx context.Context, tx pgx.Tx, userID string) ([]entity.Role, error) {
	rows, err := tx.Query(ctx, `
		SELECT r.role, r.description
		FROM user_role ur
		JOIN role r ON r.role = ur.role
		WHERE ur.user_id = $1
		ORDER BY r.role
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []entity.Role
	for rows.Next() {
		var role entity.Role
		if err := rows.Scan(&role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// queryRoles loads roles with their privileges. where may filter on alias r.
func queryRoles(ctx context.Context, tx pgx.Tx, where string, args ...any) ([]entity.Role, error) {
	rows, err := tx.Query(ctx, `
		SELECT r.role, r.description, p.privilege, p.description
		FROM role r
		LEFT JOIN role_privilege rp ON rp.role = r.role
		LEFT JOIN privilege p ON p.privilege = rp.privilege
		`+where+`
		ORDER BY r.role, p.privilege
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]entity.Role, 0)
	for rows.Next() {
		var (
			name, desc      string
			privName, pDesc *string
		)
		if err := rows.Scan(&name, &desc, &privName, &pDesc); err != nil {
			return nil, err
		}
		if n := len(roles); n == 0 || roles[n-1].Name != name {
			roles = append(roles, entity.Role{Name: name, Description: desc})
		}
		if privName != nil {
			p := entity.Privilege{Name: *privName}
			if pDesc != nil {
				p.Description = *pDesc
			}
			last := &roles[len(roles)-1]
			last.Privileges = append(last.Privileges, p)
		}
	}
	return roles, rows.Err()
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.SystemID, &u.Username, &u.GivenName, &u.MiddleName, &u.FamilyName,
		&u.PasswordHash, &u.Audit.Creator, &u.Audit.DateCreated, &u.Audit.ChangedBy, &u.Audit.DateChanged,
		&u.Void.Voided, &u.Void.VoidReason, &u.Void.VoidedBy, &u.Void.DateVoided); err != nil {
		return nil, err
	}
	return u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
