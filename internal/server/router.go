package server

import (
	"net/http"

	"relief-ledger/internal/config"
	"relief-ledger/internal/handlers"
	"relief-ledger/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionName = "relief_session"

func NewRouter(cfg *config.Config, app *handlers.App, gatherer prometheus.Gatherer) *gin.Engine {
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   !cfg.Development(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.Use(middleware.InjectUser(app.DB))
	r.Use(middleware.Logger(app.Log))

	// AUTH
	r.POST("/auth/register", app.Register)
	r.POST("/auth/login", app.Login)
	r.POST("/auth/logout", app.Logout)

	auth := r.Group("/")
	auth.Use(middleware.RequireAuth())

	auth.GET("/auth/current", app.CurrentUser)

	// ДОНАТЫ
	auth.GET("/donations", app.ListDonations)
	auth.POST("/donations", app.CreateDonation)
	auth.GET("/donations/:id", app.GetDonation)
	auth.PUT("/donations/:id", app.UpdateDonation)
	auth.DELETE("/donations/:id", app.DeleteDonation)

	// СКЛАД
	auth.GET("/stock", app.ListStock)
	auth.GET("/stock/:resource_type", app.GetStock)

	// АУДИТ: только админы
	auth.GET("/audit", middleware.RequirePrivileged(), app.ListAuditLogs)
	auth.DELETE("/audit", middleware.RequirePrivileged(), app.ClearAuditLogs)

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}
