package repository

import (
	"cardhub/dto/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.elastic.co/apm"
	"gorm.io/gorm"
)

type CardRepository struct {
	DB *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{DB: db}
}

// GetByCode returns nil, nil when no live record exists.
func (r *CardRepository) GetByCode(ctx context.Context, code string) (*model.Card, error) {
	span, ctx := apm.StartSpan(ctx, "GetByCode", "repository")
	defer span.End()

	var card model.Card
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching card %s: %w", code, err)
	}
	return &card, nil
}

// CreateRecord inserts a pending card. A live record is returned as-is; a
// soft-deleted one still owns the unique code and is restored as a fresh
// pending card.
func (r *CardRepository) CreateRecord(ctx context.Context, card *model.Card) (*model.Card, error) {
	span, ctx := apm.StartSpan(ctx, "CreateRecord", "repository")
	defer span.End()

	if card.Status == "" {
		card.Status = model.CardStatusPending
	}

	var existing model.Card
	err := r.DB.WithContext(ctx).Unscoped().Where("code = ?", card.Code).First(&existing).Error
	switch {
	case err == nil && !existing.DeletedAt.Valid:
		return &existing, nil
	case err == nil:
		return r.restore(ctx, existing.ID, card)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("error fetching card %s: %w", card.Code, err)
	}

	result := r.DB.WithContext(ctx).Where("code = ?", card.Code).FirstOrCreate(card)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create card %s: %w", card.Code, result.Error)
	}
	return card, nil
}

// restore clears the deleted row and everything the previous activation left
// on it. Activation logs keep the old history.
func (r *CardRepository) restore(ctx context.Context, id uint, card *model.Card) (*model.Card, error) {
	fields := map[string]interface{}{
		"deleted_at":            nil,
		"status":                card.Status,
		"nickname":              card.Nickname,
		"card_limit":            card.Limit,
		"validity_hours":        card.ValidityHours,
		"card_header":           card.CardHeader,
		"external":              card.External,
		"card_number":           "",
		"cvc":                   "",
		"exp_date":              "",
		"billing_address":       "",
		"is_activated":          false,
		"activation_time":       nil,
		"expires_at":            nil,
		"refund_requested":      false,
		"refund_requested_time": nil,
		"is_used":               false,
		"used_time":             nil,
		"is_sold":               false,
		"sold_time":             nil,
	}
	if err := r.DB.WithContext(ctx).Unscoped().Model(&model.Card{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to restore card %s: %w", card.Code, err)
	}
	return r.GetByCode(ctx, card.Code)
}

// UpsertActivation writes the activation fields onto an existing record.
// It returns nil, nil when no record matches the code.
func (r *CardRepository) UpsertActivation(ctx context.Context, code string, update model.ActivationUpdate) (*model.Card, error) {
	span, ctx := apm.StartSpan(ctx, "UpsertActivation", "repository")
	defer span.End()

	activatedAt := update.ActivatedAt
	fields := map[string]interface{}{
		"card_number":     update.CardNumber,
		"cvc":             update.CVC,
		"exp_date":        update.ExpDate,
		"billing_address": update.BillingAddress,
		"status":          model.CardStatusActivated,
		"is_activated":    true,
		"activation_time": &activatedAt,
	}
	if update.ValidityHours != nil {
		fields["validity_hours"] = *update.ValidityHours
	}
	if update.ExpiresAt != nil {
		fields["expires_at"] = *update.ExpiresAt
	}
	if update.Limit != nil && !update.Limit.IsZero() {
		fields["card_limit"] = *update.Limit
	}

	tx := r.DB.WithContext(ctx).Model(&model.Card{}).Where("code = ?", code).Updates(fields)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to update card %s: %w", code, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, nil
	}

	// a nickname supplied by the operator wins over the issuer's
	if update.Nickname != "" {
		if err := r.DB.WithContext(ctx).Model(&model.Card{}).
			Where("code = ? AND (nickname IS NULL OR nickname = '')", code).
			Update("nickname", update.Nickname).Error; err != nil {
			return nil, fmt.Errorf("failed to update nickname for %s: %w", code, err)
		}
	}

	return r.GetByCode(ctx, code)
}

func (r *CardRepository) List(ctx context.Context, filter model.CardFilter) ([]model.Card, error) {
	span, ctx := apm.StartSpan(ctx, "ListCards", "repository")
	defer span.End()

	query := r.DB.WithContext(ctx).Model(&model.Card{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR nickname ILIKE ? OR card_number LIKE ?", like, like, like)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var cards []model.Card
	if err := query.Order("created_at DESC").Offset(filter.Skip).Limit(limit).Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("unable to fetch cards: %w", err)
	}
	return cards, nil
}

func (r *CardRepository) Update(ctx context.Context, code string, fields map[string]interface{}) (*model.Card, error) {
	if len(fields) > 0 {
		tx := r.DB.WithContext(ctx).Model(&model.Card{}).Where("code = ?", code).Updates(fields)
		if tx.Error != nil {
			return nil, fmt.Errorf("failed to update card %s: %w", code, tx.Error)
		}
	}
	return r.GetByCode(ctx, code)
}

// SoftDelete marks the card deleted and hides it from regular queries.
func (r *CardRepository) SoftDelete(ctx context.Context, code string) (bool, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Card{}).Where("code = ?", code).Update("status", model.CardStatusDeleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("code = ?", code).Delete(&model.Card{}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete card %s: %w", code, err)
	}
	return true, nil
}

// Toggle flips one of the refund/used/sold flags and stamps or clears its time.
func (r *CardRepository) Toggle(ctx context.Context, code string, flag model.CardFlag, now time.Time) (*model.Card, error) {
	card, err := r.GetByCode(ctx, code)
	if err != nil || card == nil {
		return card, err
	}

	var on bool
	switch flag {
	case model.FlagRefund:
		on = !card.RefundRequested
	case model.FlagUsed:
		on = !card.IsUsed
	case model.FlagSold:
		on = !card.IsSold
	default:
		return nil, fmt.Errorf("unknown card flag %q", flag)
	}

	var stamp *time.Time
	if on {
		stamp = &now
	}
	column, timeColumn := flag.Columns()
	fields := map[string]interface{}{column: on, timeColumn: stamp}
	if err := r.DB.WithContext(ctx).Model(&model.Card{}).Where("code = ?", code).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle %s on %s: %w", flag, code, err)
	}
	return r.GetByCode(ctx, code)
}

// MarkExpired moves every card whose expiry has passed to expired.
func (r *CardRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	span, ctx := apm.StartSpan(ctx, "MarkExpired", "repository")
	defer span.End()

	tx := r.DB.WithContext(ctx).Model(&model.Card{}).
		Where("expires_at IS NOT NULL AND expires_at < ? AND status NOT IN ?", now, []string{model.CardStatusExpired, model.CardStatusDeleted}).
		Update("status", model.CardStatusExpired)
	if tx.Error != nil {
		return 0, fmt.Errorf("failed to mark expired cards: %w", tx.Error)
	}
	return tx.RowsAffected, nil
}

// FindUnreturned lists card numbers of expired activated cards with no refund requested.
func (r *CardRepository) FindUnreturned(ctx context.Context) ([]string, error) {
	var numbers []string
	err := r.DB.WithContext(ctx).Model(&model.Card{}).
		Where("status = ? AND is_activated = ? AND refund_requested = ? AND card_number <> ''", model.CardStatusExpired, true, false).
		Pluck("card_number", &numbers).Error
	if err != nil {
		return nil, fmt.Errorf("unable to fetch unreturned cards: %w", err)
	}
	return numbers, nil
}

func (r *CardRepository) FindByLimit(ctx context.Context, limit decimal.Decimal) ([]model.Card, error) {
	var cards []model.Card
	err := r.DB.WithContext(ctx).
		Where("card_limit = ? AND status <> ?", limit, model.CardStatusDeleted).
		Order("created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("unable to fetch cards by limit: %w", err)
	}
	return cards, nil
}

// All is used by the export; deleted cards are excluded by the soft delete scope.
func (r *CardRepository) All(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("unable to fetch cards: %w", err)
	}
	return cards, nil
}
