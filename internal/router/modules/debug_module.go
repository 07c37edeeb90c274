package modules

import (
	"expvar"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/medrecords-users/internal/interface/middleware"
)

var publishPoolStats sync.Once

// DebugModule exposes expvar at /api/debug/vars to private networks only.
type DebugModule struct {
	Pool *pgxpool.Pool
}

func NewDebugModule(pool *pgxpool.Pool) *DebugModule { return &DebugModule{Pool: pool} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	if m.Pool != nil {
		pool := m.Pool
		publishPoolStats.Do(func() {
			expvar.Publish("pgpool", expvar.Func(func() any {
				s := pool.Stat()
				return map[string]any{
					"acquired_conns":     s.AcquiredConns(),
					"idle_conns":         s.IdleConns(),
					"total_conns":        s.TotalConns(),
					"max_conns":          s.MaxConns(),
					"acquire_count":      s.AcquireCount(),
					"empty_acquire":      s.EmptyAcquireCount(),
					"canceled_acquire":   s.CanceledAcquireCount(),
					"acquire_duration_s": s.AcquireDuration().Seconds(),
				}
			}))
		})
	}
	rg.GET("/debug/vars", middleware.OnlyPrivateIP(), gin.WrapH(expvar.Handler()))
}
