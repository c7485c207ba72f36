package handlers

import (
	"net/http"
	"strconv"

	"relief-ledger/internal/database"
	"relief-ledger/internal/ledger"
	"relief-ledger/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// App carries what the handlers need. It is built once in the router.
type App struct {
	DB     *gorm.DB
	Engine *ledger.Engine
	Audit  *database.AuditRecorder
	Log    zerolog.Logger
}

func NewApp(db *gorm.DB, engine *ledger.Engine, audit *database.AuditRecorder, log zerolog.Logger) *App {
	return &App{DB: db, Engine: engine, Audit: audit, Log: log}
}

// fail writes err as {"error": msg} with the status of its ledger kind.
// Internal failures are attached to the context for the request logger
// and never leak their text.
func (a *App) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch ledger.Kind(err) {
	case "invalid_input":
		status, msg = http.StatusBadRequest, err.Error()
	case "unauthorized":
		status, msg = http.StatusUnauthorized, "authentication required"
	case "forbidden":
		status, msg = http.StatusForbidden, "forbidden"
	case "not_found":
		status, msg = http.StatusNotFound, err.Error()
	case "conflict":
		status, msg = http.StatusConflict, "conflicting update, retry"
	case "audit_write_failed":
		msg = "audit write failed"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func (a *App) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func principal(c *gin.Context) *ledger.Principal {
	return middleware.CurrentPrincipal(c)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
