package database

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"relief-ledger/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedSuperAdmin creates the super admin account if no privileged user exists yet.
// An empty password generates a random one which is logged once.
func SeedSuperAdmin(db *gorm.DB, email, password string, log zerolog.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).
		Where("role IN ?", []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	generated := false
	if password == "" {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate admin password: %w", err)
		}
		password = hex.EncodeToString(buf)
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Name:         "Super Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleSuperAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("admin email %s is taken by a non-admin user", email)
		}
		return fmt.Errorf("create admin: %w", err)
	}

	ev := log.Info().Str("email", email)
	if generated {
		ev = ev.Str("password", password)
	}
	ev.Msg("created super admin")
	return nil
}
