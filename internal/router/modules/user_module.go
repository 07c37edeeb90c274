package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/medrecords-users/internal/interface/http"
	"github.com/oksasatya/medrecords-users/internal/interface/middleware"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
)

// Limits configures the per-actor rate limit shared by the protected modules.
// A nil Redis disables limiting.
type Limits struct {
	Redis     *redis.Client
	PerMinute int
}

func (l Limits) perActor() gin.HandlerFunc {
	return middleware.RateLimit(l.Redis, l.PerMinute, time.Minute, middleware.KeyByActor(), middleware.AllowPrivateIP())
}

// destructive allows a tenth of the normal budget for void/delete per route.
func (l Limits) destructive() gin.HandlerFunc {
	n := l.PerMinute / 10
	if n < 1 {
		n = 1
	}
	return middleware.RateLimit(l.Redis, n, time.Minute, middleware.KeyByActorAndPath(), middleware.AllowPrivateIP())
}

// UserModule serves /api/users. Every route requires a bearer token whose
// subject becomes the acting user.
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Limits  Limits
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, limits Limits) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, Limits: limits}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.JWT), m.Limits.perActor())
	{
		users.POST("", m.Handler.Create)
		users.GET("/search", m.Handler.Search)
		users.GET("/by-username/:username", m.Handler.GetByUsername)
		users.GET("/:id", m.Handler.Get)
		users.PATCH("/:id", m.Handler.Update)
		users.POST("/:id/void", m.Limits.destructive(), m.Handler.Void)
		users.POST("/:id/unvoid", m.Handler.Unvoid)
		users.DELETE("/:id", m.Limits.destructive(), m.Handler.Delete)
		users.PUT("/:id/roles/:role", m.Handler.GrantRole)
		users.DELETE("/:id/roles/:role", m.Handler.RevokeRole)
	}
}
