package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/credit/domain"
	"gorm.io/gorm"
)

type store struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Store {
	return &store{db: db}
}

func (s *store) Balance(ctx context.Context, accountID snowflake.ID) (int64, error) {
	var row struct {
		Credits int64
	}
	err := s.db.WithContext(ctx).
		Table("accounts").
		Select("credits").
		Where("id = ?", accountID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrAccountNotFound
		}
		return 0, err
	}
	return row.Credits, nil
}

func (s *store) ConditionalDebit(ctx context.Context, accountID snowflake.ID, amount, expected int64) error {
	res := s.db.WithContext(ctx).Exec(
		"UPDATE accounts SET credits = credits - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND credits = ?",
		amount, accountID, expected,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (s *store) Grant(ctx context.Context, accountID snowflake.ID, amount int64) error {
	res := s.db.WithContext(ctx).Exec(
		"UPDATE accounts SET credits = credits + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		amount, accountID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
