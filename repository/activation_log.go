package repository

import (
	"cardhub/dto/model"
	"context"
	"fmt"

	"go.elastic.co/apm"
	"gorm.io/gorm"
)

type ActivationLogRepository struct {
	DB *gorm.DB
}

func NewActivationLogRepository(db *gorm.DB) *ActivationLogRepository {
	return &ActivationLogRepository{DB: db}
}

func (r *ActivationLogRepository) Append(ctx context.Context, code, status, message string) error {
	span, ctx := apm.StartSpan(ctx, "AppendActivationLog", "repository")
	defer span.End()

	entry := model.ActivationLog{
		Code:         code,
		Status:       status,
		ErrorMessage: message,
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append activation log for %s: %w", code, err)
	}
	return nil
}

func (r *ActivationLogRepository) ListByCode(ctx context.Context, code string) ([]model.ActivationLog, error) {
	var logs []model.ActivationLog
	if err := r.DB.WithContext(ctx).Where("code = ?", code).Order("activation_time DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("unable to fetch activation logs: %w", err)
	}
	return logs, nil
}
