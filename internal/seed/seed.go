package seed

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/auth/domain"
	"github.com/inkwell-ai/inkwell/internal/auth/password"
	"gorm.io/gorm"
)

const (
	demoEmail    = "demo@inkwell.dev"
	demoPassword = "demo-password"
)

// EnsureDemoAccount creates a demo login for non-production environments.
// Idempotent: an existing account is left untouched.
func EnsureDemoAccount(conn *gorm.DB, credits int64) error {
	var existing domain.Account
	err := conn.Where("email = ?", demoEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := password.Hash(demoPassword)
	if err != nil {
		return err
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return conn.Create(&domain.Account{
		ID:           node.Generate(),
		Email:        demoEmail,
		DisplayName:  "Demo",
		PasswordHash: &hashed,
		Credits:      credits,
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error
}
