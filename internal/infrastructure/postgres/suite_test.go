package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	testPostgresDSNEnv    = "TEST_POSTGRES_DSN"
	defaultMigrationsPath = "file://../../../db/migrations"
)

// dbSuite migrates a scratch database and truncates it before every test.
// It is skipped unless TEST_POSTGRES_DSN points at a reachable server.
type dbSuite struct {
	suite.Suite
	pool       *pgxpool.Pool
	uow        *UnitOfWork
	migrations *migrate.Migrate
	logger     *logrus.Logger
}

func newDBSuite(t *testing.T) *dbSuite {
	dsn := os.Getenv(testPostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping postgres integration tests", testPostgresDSNEnv)
	}
	pool, err := NewPool(context.Background(), PoolConfig{DSN: dsn, MaxConns: 8})
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}

	m, err := migrate.New(defaultMigrationsPath, dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	return &dbSuite{pool: pool, uow: NewUnitOfWork(pool), migrations: m, logger: logger}
}

func (s *dbSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.migrations != nil {
		if err := s.migrations.Down(); err != nil && err != migrate.ErrNoChange {
			s.T().Logf("failed to roll back migrations: %v", err)
		}
	}
}

func (s *dbSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `
		TRUNCATE TABLE patient_name, patient, user_role, role_privilege, role, privilege, users CASCADE
	`)
	require.NoError(s.T(), err, "failed to clean tables before test")
}

func (s *dbSuite) exec(sql string, args ...any) {
	_, err := s.pool.Exec(context.Background(), sql, args...)
	require.NoError(s.T(), err)
}
