package middleware

import (
	"relief-ledger/internal/ledger"
	"relief-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const principalKey = "principal"

// SessionUserID is the session key holding the logged-in user's id.
const SessionUserID = "user_id"

// InjectUser resolves the session user into a ledger.Principal. A session
// pointing at a deleted user is treated as anonymous.
func InjectUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uid, ok := sess.Get(SessionUserID).(uint); ok && uid > 0 {
			var user models.User
			if err := db.WithContext(c.Request.Context()).First(&user, uid).Error; err == nil {
				c.Set(principalKey, &ledger.Principal{ID: user.ID, Name: user.Name, Role: user.Role})
			}
		}

		c.Next()
	}
}

// CurrentPrincipal returns the principal set by InjectUser, or nil.
func CurrentPrincipal(c *gin.Context) *ledger.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*ledger.Principal)
	return p
}
