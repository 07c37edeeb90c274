package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/medrecords-users/internal/interface/http"
	"github.com/oksasatya/medrecords-users/internal/interface/middleware"
	"github.com/oksasatya/medrecords-users/pkg/helpers"
)

// DirectoryModule serves the read-only /api/roles, /api/privileges and /api/patients.
type DirectoryModule struct {
	Handler *handlers.DirectoryHandler
	JWT     *helpers.JWTManager
	Limits  Limits
}

func NewDirectoryModule(h *handlers.DirectoryHandler, jwt *helpers.JWTManager, limits Limits) *DirectoryModule {
	return &DirectoryModule{Handler: h, JWT: jwt, Limits: limits}
}

func (m *DirectoryModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("")
	auth.Use(middleware.Auth(m.JWT), m.Limits.perActor())
	{
		auth.GET("/roles", m.Handler.Roles)
		auth.GET("/privileges", m.Handler.Privileges)
		auth.GET("/patients", m.Handler.Patients)
	}
}
