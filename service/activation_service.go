package service

import (
	"cardhub/dto/model"
	"cardhub/helper"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.elastic.co/apm"
)

var (
	ErrCardNotFound  = errors.New("card not found")
	ErrRecordMissing = errors.New("card record still missing after create")
)

// CardStore is the persistence the activation flow depends on.
type CardStore interface {
	GetByCode(ctx context.Context, code string) (*model.Card, error)
	// UpsertActivation returns nil, nil when no record exists for code.
	UpsertActivation(ctx context.Context, code string, update model.ActivationUpdate) (*model.Card, error)
	CreateRecord(ctx context.Context, card *model.Card) (*model.Card, error)
	Update(ctx context.Context, code string, fields map[string]interface{}) (*model.Card, error)
}

// ActivationLog receives one entry per terminal outcome.
type ActivationLog interface {
	Append(ctx context.Context, code, status, message string) error
}

// AppendLog writes to the activation log and swallows every failure.
func AppendLog(ctx context.Context, log ActivationLog, code, status, message string) {
	if log == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			helper.Error("[ActivationLog] append for %s panicked: %v", code, r)
		}
	}()
	if err := log.Append(ctx, code, status, message); err != nil {
		helper.Warn("[ActivationLog] append for %s failed: %v", code, err)
	}
}

// ToUpdate maps the canonical info onto the persisted activation fields.
func (c CardInfo) ToUpdate(activatedAt time.Time) model.ActivationUpdate {
	update := model.ActivationUpdate{
		CardNumber:     c.PAN,
		CVC:            c.CVC,
		ExpDate:        c.ExpDisplay,
		BillingAddress: c.BillingAddress,
		Nickname:       c.Nickname,
		ValidityHours:  c.ValidityHours,
		ExpiresAt:      c.ExpirationTime.Parsed(),
		ActivatedAt:    activatedAt,
	}
	if !c.Limit.IsZero() {
		limit := c.Limit
		update.Limit = &limit
	}
	return update
}

// CardInfoFromRecord rebuilds canonical info from a stored card.
func CardInfoFromRecord(card *model.Card) CardInfo {
	info := CardInfo{
		PAN:            card.CardNumber,
		CVC:            card.CVC,
		ExpDisplay:     card.ExpDate,
		BillingAddress: card.BillingAddress,
		Nickname:       card.Nickname,
		Limit:          card.Limit,
		StatusText:     StatusUnknown,
		ValidityHours:  card.ValidityHours,
	}
	if parts := strings.SplitN(card.ExpDate, "/", 2); len(parts) == 2 {
		info.ExpMonth, info.ExpYear = parts[0], parts[1]
	}
	if card.Activated() {
		info.StatusText = StatusActivated
	}
	if card.ActivationTime != nil {
		info.CreationTime = Timestamp{Time: helper.ToReference(*card.ActivationTime)}
	}
	if card.ExpiresAt != nil {
		info.ExpirationTime = Timestamp{Time: helper.ToReference(*card.ExpiresAt)}
	}
	return info
}

// SaveActivation writes a successful activation. A missing record is
// created and the write retried once; a second miss is an error.
func SaveActivation(ctx context.Context, store CardStore, code string, info CardInfo, now time.Time) (*model.Card, error) {
	update := info.ToUpdate(now)

	card, err := store.UpsertActivation(ctx, code, update)
	if err != nil {
		return nil, err
	}
	if card != nil {
		return card, nil
	}

	helper.Warn("[Activation] record for %s missing at save, creating it", code)
	if _, err := store.CreateRecord(ctx, &model.Card{
		Code:          code,
		Nickname:      info.Nickname,
		Limit:         info.Limit,
		ValidityHours: info.ValidityHours,
	}); err != nil {
		return nil, fmt.Errorf("create record for %s: %w", code, err)
	}

	card, err = store.UpsertActivation(ctx, code, update)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordMissing, code)
	}
	return card, nil
}

// Result is what the single-code entry point reports.
type Result struct {
	Succeeded bool
	Message   string
	Info      *CardInfo
	Card      *model.Card
	Failure   FailureKind
}

// ActivationService is the interactive single-code path.
type ActivationService struct {
	Activator *Activator
	Store     CardStore
	Log       ActivationLog
	Now       func() time.Time
}

func NewActivationService(activator *Activator, store CardStore, log ActivationLog) *ActivationService {
	return &ActivationService{Activator: activator, Store: store, Log: log, Now: time.Now}
}

func (s *ActivationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Activate redeems one code with no retries. Codes already activated are
// answered from the store without calling the issuer.
func (s *ActivationService) Activate(ctx context.Context, code string) Result {
	span, ctx := apm.StartSpan(ctx, "Activate", "service")
	defer span.End()

	code = strings.TrimSpace(code)

	card, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		return Result{Message: err.Error(), Failure: FailurePersistence}
	}
	if card.Activated() {
		info := CardInfoFromRecord(card)
		return Result{Succeeded: true, Message: "card already activated", Info: &info, Card: card}
	}
	if card == nil {
		if _, err := s.Store.CreateRecord(ctx, &model.Card{Code: code}); err != nil {
			return Result{Message: err.Error(), Failure: FailurePersistence}
		}
	}

	outcome := s.activate(ctx, code)
	if !outcome.Succeeded {
		AppendLog(ctx, s.Log, code, model.ActivationLogFailed, outcome.Message)
		return Result{Message: outcome.Message, Failure: outcome.Failure}
	}

	saved, err := SaveActivation(ctx, s.Store, code, *outcome.Info, s.now())
	if err != nil {
		msg := fmt.Sprintf("card activated but not saved: %v", err)
		helper.Error("[Activation] %s: %s", code, msg)
		AppendLog(ctx, s.Log, code, model.ActivationLogFailed, msg)
		return Result{Message: msg, Info: outcome.Info, Failure: FailurePersistence}
	}

	AppendLog(ctx, s.Log, code, model.ActivationLogSuccess, "")
	return Result{Succeeded: true, Message: outcome.Message, Info: outcome.Info, Card: saved}
}

func (s *ActivationService) activate(ctx context.Context, code string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			helper.Error("[Activation] %s panicked: %v", code, r)
			outcome = Outcome{Failure: FailurePanic, Message: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()
	return s.Activator.ActivateIfNeeded(ctx, code)
}

// Query refreshes a stored card from issuers that can be queried.
func (s *ActivationService) Query(ctx context.Context, code string) (*model.Card, error) {
	card, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	info, _, err := s.Activator.Query(ctx, code)
	if err != nil && !errors.Is(err, ErrMissingPAN) {
		return nil, err
	}

	if info.PAN != "" {
		return SaveActivation(ctx, s.Store, code, info, s.now())
	}

	fields := map[string]interface{}{}
	if info.ValidityHours != nil {
		fields["validity_hours"] = *info.ValidityHours
	}
	if expires := info.ExpirationTime.Parsed(); expires != nil {
		fields["expires_at"] = *expires
	}
	if !info.Limit.IsZero() {
		fields["card_limit"] = info.Limit
	}
	return s.Store.Update(ctx, code, fields)
}
