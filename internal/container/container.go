package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/medrecords-users/config"
	"github.com/oksasatya/medrecords-users/internal/application"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/messaging"
	"github.com/oksasatya/medrecords-users/internal/infrastructure/search"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
)

// app-level container shared by cmd/main.go and the router modules.
// Optional components (redis, events, user index) stay nil when not configured.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	rabbitPub   *messaging.RabbitPublisher
	userIndex   *search.UserIndex
)

func SetConfig(c *config.Config)   { cfg = c }
func GetConfig() *config.Config    { return cfg }
func SetLogger(l *logrus.Logger)   { logger = l }
func SetPGPool(p *pgxpool.Pool)    { pgPool = p }
func GetPGPool() *pgxpool.Pool     { return pgPool }
func SetRedis(r *redis.Client)     { redisClient = r }
func GetRedis() *redis.Client      { return redisClient }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }

func GetLogger() *logrus.Logger {
	if logger == nil {
		return logrus.StandardLogger()
	}
	return logger
}

func GetJWT() *helpers.JWTManager {
	if jwtManager == nil && cfg != nil {
		jwtManager = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL)
	}
	return jwtManager
}

func SetRabbitPub(p *messaging.RabbitPublisher) { rabbitPub = p }
func SetUserIndex(x *search.UserIndex)          { userIndex = x }

// GetEventPublisher returns nil (not a typed nil) when events are disabled.
func GetEventPublisher() application.EventPublisher {
	if rabbitPub == nil {
		return nil
	}
	return rabbitPub
}

// GetUserSearcher returns nil (not a typed nil) when search is disabled.
func GetUserSearcher() application.UserSearcher {
	if userIndex == nil {
		return nil
	}
	return userIndex
}
