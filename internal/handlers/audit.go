package handlers

import (
	"net/http"
	"strconv"
	"time"

	"relief-ledger/internal/database"
	"relief-ledger/internal/models"

	"github.com/gin-gonic/gin"
)

type auditResponse struct {
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    *uint     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Entity    string    `json:"entity"`
	EntityID  uint      `json:"entity_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
}

func toAuditResponse(e *models.AuditEntry) auditResponse {
	out := auditResponse{
		ID:        e.ID,
		CreatedAt: e.CreatedAt,
		UserID:    e.ActorID,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Action:    e.Action,
		Detail:    e.Detail,
	}
	if e.Actor != nil {
		out.UserName = e.Actor.Name
	}
	return out
}

// ====== AUDIT ======

// ListAuditLogs supports ?user_id=N and ?action=NAME filters.
func (a *App) ListAuditLogs(c *gin.Context) {
	var f database.AuditFilter
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			a.badRequest(c, "user_id must be an integer")
			return
		}
		uid := uint(id)
		f.ActorID = &uid
	}
	f.Action = c.Query("action")

	entries, err := database.ListAudit(a.DB.WithContext(c.Request.Context()), f)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := make([]auditResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toAuditResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (a *App) ClearAuditLogs(c *gin.Context) {
	n, err := database.ClearAudit(a.DB.WithContext(c.Request.Context()))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	a.Log.Warn().Uint("user_id", principal(c).ID).Int64("deleted", n).Msg("audit log cleared")
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
