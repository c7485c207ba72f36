package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"relief-ledger/internal/middleware"
	"relief-ledger/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type userResponse struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role"`
}

// Register creates an account. Administrative roles cannot be self-assigned.
func (a *App) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, "name, valid email and password are required")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || len(req.Password) < 6 {
		a.badRequest(c, "name is required and password must be at least 6 characters")
		return
	}

	role := models.RoleVictim
	if r := strings.ToLower(strings.TrimSpace(req.Role)); r != "" {
		role = models.UserRole(r)
	}
	if !role.Valid() || role.Privileged() {
		a.badRequest(c, "invalid role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	errTaken := errors.New("email taken")
	err = a.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errTaken
			}
			return err
		}
		return a.Audit.Record(tx, &models.AuditEntry{
			ActorID:  &user.ID,
			Entity:   "user",
			EntityID: user.ID,
			Action:   models.ActionRegister,
			Detail:   fmt.Sprintf("User %s registered with role '%s'", user.Email, user.Role),
		})
	})
	switch {
	case errors.Is(err, errTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered", "user": toUserResponse(&user)})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (a *App) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, "email and password are required")
		return
	}

	ctx := c.Request.Context()
	var user models.User
	err := a.DB.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err == nil {
		err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	err = a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return a.Audit.Record(tx, &models.AuditEntry{
			ActorID:  &user.ID,
			Entity:   "user",
			EntityID: user.ID,
			Action:   models.ActionLogin,
			Detail:   fmt.Sprintf("User %s logged in", user.Email),
		})
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserID, user.ID)
	sess.Set("role", string(user.Role))
	if err := sess.Save(); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged in", "user": toUserResponse(&user)})
}

func (a *App) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (a *App) CurrentUser(c *gin.Context) {
	var user models.User
	if err := a.DB.WithContext(c.Request.Context()).First(&user, principal(c).ID).Error; err != nil {
		a.fail(c, fmt.Errorf("load current user: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(&user)})
}
