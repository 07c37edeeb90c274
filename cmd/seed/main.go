package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/oksasatya/medrecords-users/config"
	"github.com/oksasatya/medrecords-users/internal/domain/entity"
	"github.com/oksasatya/medrecords-users/internal/domain/identity"
	pginfra "github.com/oksasatya/medrecords-users/internal/infrastructure/postgres"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
)

var privileges = []entity.Privilege{
	{Name: "View Users", Description: "Look up user accounts"},
	{Name: "Edit Users", Description: "Create, update, void and unvoid user accounts"},
	{Name: "Delete Users", Description: "Permanently delete user accounts"},
	{Name: "Manage Roles", Description: "Grant and revoke roles"},
	{Name: "View Patients", Description: "Search patients by name"},
}

var roles = map[string][]string{
	"System Developer": {"View Users", "Edit Users", "Delete Users", "Manage Roles", "View Patients"},
	"Provider":         {"View Patients"},
	"Clerk":            {"View Users", "View Patients"},
}

const adminRole = "System Developer"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{DSN: cfg.PostgresDSN(), MaxConns: 2})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	uow := pginfra.NewUnitOfWork(pool)
	if err := uow.InTx(ctx, func(tx pgx.Tx) error { return seedRoles(ctx, tx) }); err != nil {
		log.Fatalf("failed to seed roles: %v", err)
	}
	fmt.Printf("roles ensured: %d privileges, %d roles\n", len(privileges), len(roles))

	// No actor in ctx: the admin is bootstrapped as its own creator.
	users := pginfra.NewUserRepository(uow, identity.ContextProvider{}, logger)
	admin, err := users.GetUserByUsername(ctx, cfg.SeedAdminUsername)
	if err != nil {
		log.Fatalf("failed to look up admin: %v", err)
	}
	if admin == nil {
		hash, err := helpers.HashPassword(cfg.SeedAdminPassword)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		admin = &entity.User{Username: cfg.SeedAdminUsername, GivenName: "System", FamilyName: "Administrator", PasswordHash: hash}
		if err := users.CreateUser(ctx, admin); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
		fmt.Printf("seeded user: id=%s username=%s password=%s\n", admin.ID, admin.Username, cfg.SeedAdminPassword)
	} else {
		fmt.Printf("admin exists: id=%s username=%s\n", admin.ID, admin.Username)
	}

	if !admin.HasRole(adminRole) {
		role, err := users.GetRole(ctx, adminRole)
		if err != nil {
			log.Fatalf("failed to load %s role: %v", adminRole, err)
		}
		asAdmin := pginfra.NewUserRepository(uow, identity.Static(admin.ID), logger)
		if err := asAdmin.GrantUserRole(ctx, admin, *role); err != nil {
			log.Fatalf("failed to grant %s: %v", adminRole, err)
		}
		fmt.Printf("granted %s to %s\n", adminRole, admin.Username)
	}

	token, exp, err := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL).GenerateAccessToken(admin.ID, admin.Username)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Printf("bearer token (expires %s):\n%s\n", exp.Format("2006-01-02 15:04:05 MST"), token)
}

func seedRoles(ctx context.Context, tx pgx.Tx) error {
	for _, p := range privileges {
		if _, err := tx.Exec(ctx, `
			INSERT INTO privilege (privilege, description) VALUES ($1, $2)
			ON CONFLICT (privilege) DO UPDATE SET description = EXCLUDED.description
		`, p.Name, p.Description); err != nil {
			return err
		}
	}
	for role, granted := range roles {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role (role, description) VALUES ($1, $2)
			ON CONFLICT (role) DO NOTHING
		`, role, role); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_privilege (role, privilege)
			SELECT $1, unnest($2::varchar[])
			ON CONFLICT DO NOTHING
		`, role, granted); err != nil {
			return err
		}
	}
	return nil
}
