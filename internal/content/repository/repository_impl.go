package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/content/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, artifact *domain.Artifact) error {
	return r.db.WithContext(ctx).Create(artifact).Error
}

func (r *repo) MarkDebitPending(ctx context.Context, artifactID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.Artifact{}).
		Where("id = ?", artifactID).
		Update("debit_pending", true).Error
}

func (r *repo) ListByOwner(ctx context.Context, ownerID snowflake.ID) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&artifacts).Error
	if err != nil {
		return nil, err
	}
	return artifacts, nil
}

func (r *repo) DeleteByIDAndOwner(ctx context.Context, artifactID, ownerID snowflake.ID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", artifactID, ownerID).
		Delete(&domain.Artifact{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
