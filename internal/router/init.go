package router

import (
	appuser "github.com/oksasatya/medrecords-users/internal/application"
	"github.com/oksasatya/medrecords-users/internal/container"
	"github.com/oksasatya/medrecords-users/internal/domain/identity"
	pginfra "github.com/oksasatya/medrecords-users/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/medrecords-users/internal/interface/http"
	"github.com/oksasatya/medrecords-users/internal/router/modules"
)

type moduleDeps struct {
	Service   *appuser.Service
	Users     *handlers.UserHandler
	Directory *handlers.DirectoryHandler
}

func buildDeps() moduleDeps {
	logger := container.GetLogger()
	uow := pginfra.NewUnitOfWork(container.GetPGPool())

	service := appuser.NewService(
		pginfra.NewUserRepository(uow, identity.ContextProvider{}, logger),
		pginfra.NewPatientRepository(uow),
		container.GetEventPublisher(),
		container.GetUserSearcher(),
		logger,
	)

	return moduleDeps{
		Service:   service,
		Users:     handlers.NewUserHandler(service, logger),
		Directory: handlers.NewDirectoryHandler(service, logger),
	}
}

// InitModules wires every feature module into the registry.
// Call once during startup, after the container has been populated.
func InitModules(r *Registry) {
	deps := buildDeps()
	cfg := container.GetConfig()
	limits := modules.Limits{Redis: container.GetRedis(), PerMinute: cfg.RateLimitPerMinute}

	r.Add(modules.NewUserModule(deps.Users, container.GetJWT(), limits))
	r.Add(modules.NewDirectoryModule(deps.Directory, container.GetJWT(), limits))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetPGPool()))
	}
}
