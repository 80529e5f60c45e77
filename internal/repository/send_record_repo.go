package repository

import (
	"context"
	"errors"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"gorm.io/gorm"
)

type SendRecordRepository interface {
	Create(ctx context.Context, r *domain.SendRecord) error
	LatestByDedupKey(ctx context.Context, dedupKey string) (*domain.SendRecord, error)
	LatestByRecipientCategory(ctx context.Context, recipient, category string) (*domain.SendRecord, error)
	CountSince(ctx context.Context, recipient, category string, since time.Time) (int64, error)
}

type GormSendRecordRepo struct {
	db *gorm.DB
}

func NewGormSendRecordRepo(db *gorm.DB) *GormSendRecordRepo {
	return &GormSendRecordRepo{db: db}
}

func (r *GormSendRecordRepo) Create(ctx context.Context, record *domain.SendRecord) error {
	model := recordModelFromDomain(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if record != nil {
		*record = *recordModelToDomain(model)
	}
	return nil
}

func (r *GormSendRecordRepo) LatestByDedupKey(ctx context.Context, dedupKey string) (*domain.SendRecord, error) {
	var model SendRecordModel
	err := r.db.WithContext(ctx).
		Where("dedup_key = ?", dedupKey).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recordModelToDomain(&model), nil
}

func (r *GormSendRecordRepo) LatestByRecipientCategory(ctx context.Context, recipient, category string) (*domain.SendRecord, error) {
	var model SendRecordModel
	err := r.db.WithContext(ctx).
		Where("recipient = ? AND category = ?", recipient, category).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recordModelToDomain(&model), nil
}

func (r *GormSendRecordRepo) CountSince(ctx context.Context, recipient, category string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&SendRecordModel{}).
		Where("recipient = ? AND category = ? AND created_at >= ?", recipient, category, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
