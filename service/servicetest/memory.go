// Package servicetest provides in-memory collaborators for activation tests.
package servicetest

import (
	"cardhub/dto/model"
	"cardhub/lib"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// MemoryStore is a concurrency-safe card repository.
type MemoryStore struct {
	mu    sync.Mutex
	cards map[string]*model.Card
	seq   uint

	// MissUpserts makes the next n upserts report a missing record.
	MissUpserts int
	UpsertErr   error
	Upserts     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cards: map[string]*model.Card{}}
}

// Put stores a card as-is.
func (s *MemoryStore) Put(card model.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	card.ID = s.seq
	s.cards[card.Code] = &card
}

func (s *MemoryStore) Get(code string) *model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card, ok := s.cards[code]; ok {
		copied := *card
		return &copied
	}
	return nil
}

func (s *MemoryStore) GetByCode(_ context.Context, code string) (*model.Card, error) {
	return s.Get(code), nil
}

func (s *MemoryStore) CreateRecord(_ context.Context, card *model.Card) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cards[card.Code]; ok {
		copied := *existing
		return &copied, nil
	}
	s.seq++
	stored := *card
	stored.ID = s.seq
	if stored.Status == "" {
		stored.Status = model.CardStatusPending
	}
	stored.CreatedAt = time.Now()
	s.cards[card.Code] = &stored
	copied := stored
	return &copied, nil
}

func (s *MemoryStore) UpsertActivation(_ context.Context, code string, update model.ActivationUpdate) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Upserts++
	if s.UpsertErr != nil {
		return nil, s.UpsertErr
	}
	if s.MissUpserts > 0 {
		s.MissUpserts--
		return nil, nil
	}
	card, ok := s.cards[code]
	if !ok {
		return nil, nil
	}
	activatedAt := update.ActivatedAt
	card.CardNumber = update.CardNumber
	card.CVC = update.CVC
	card.ExpDate = update.ExpDate
	card.BillingAddress = update.BillingAddress
	card.Status = model.CardStatusActivated
	card.IsActivated = true
	card.ActivationTime = &activatedAt
	if update.ValidityHours != nil {
		card.ValidityHours = update.ValidityHours
	}
	if update.ExpiresAt != nil {
		card.ExpiresAt = update.ExpiresAt
	}
	if update.Limit != nil {
		card.Limit = *update.Limit
	}
	if card.Nickname == "" {
		card.Nickname = update.Nickname
	}
	copied := *card
	return &copied, nil
}

func (s *MemoryStore) Update(_ context.Context, code string, fields map[string]interface{}) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[code]
	if !ok {
		return nil, nil
	}
	for key, value := range fields {
		switch key {
		case "nickname":
			card.Nickname = value.(string)
		case "card_limit":
			card.Limit = value.(decimal.Decimal)
		case "validity_hours":
			hours := value.(float64)
			card.ValidityHours = &hours
		case "expires_at":
			expires := value.(time.Time)
			card.ExpiresAt = &expires
		case "status":
			card.Status = value.(string)
		default:
			return nil, fmt.Errorf("unknown field %s", key)
		}
	}
	copied := *card
	return &copied, nil
}

func (s *MemoryStore) List(_ context.Context, filter model.CardFilter) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := make([]model.Card, 0, len(s.cards))
	for _, card := range s.cards {
		if filter.Status != "" && card.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(card.Code, filter.Search) && !strings.Contains(card.Nickname, filter.Search) {
			continue
		}
		cards = append(cards, *card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	if filter.Skip >= len(cards) {
		return []model.Card{}, nil
	}
	cards = cards[filter.Skip:]
	if filter.Limit > 0 && filter.Limit < len(cards) {
		cards = cards[:filter.Limit]
	}
	return cards, nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[code]; !ok {
		return false, nil
	}
	delete(s.cards, code)
	return true, nil
}

func (s *MemoryStore) Toggle(_ context.Context, code string, flag model.CardFlag, now time.Time) (*model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[code]
	if !ok {
		return nil, nil
	}
	stamp := func(on bool) *time.Time {
		if on {
			return &now
		}
		return nil
	}
	switch flag {
	case model.FlagRefund:
		card.RefundRequested = !card.RefundRequested
		card.RefundRequestedTime = stamp(card.RefundRequested)
	case model.FlagUsed:
		card.IsUsed = !card.IsUsed
		card.UsedTime = stamp(card.IsUsed)
	case model.FlagSold:
		card.IsSold = !card.IsSold
		card.SoldTime = stamp(card.IsSold)
	}
	copied := *card
	return &copied, nil
}

func (s *MemoryStore) MarkExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, card := range s.cards {
		if card.ExpiresAt != nil && card.ExpiresAt.Before(now) &&
			card.Status != model.CardStatusExpired && card.Status != model.CardStatusDeleted {
			card.Status = model.CardStatusExpired
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) FindUnreturned(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	numbers := []string{}
	for _, card := range s.cards {
		if card.Status == model.CardStatusExpired && card.IsActivated && !card.RefundRequested && card.CardNumber != "" {
			numbers = append(numbers, card.CardNumber)
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}

func (s *MemoryStore) FindByLimit(_ context.Context, limit decimal.Decimal) ([]model.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards := []model.Card{}
	for _, card := range s.cards {
		if card.Limit.Equal(limit) && card.Status != model.CardStatusDeleted {
			cards = append(cards, *card)
		}
	}
	return cards, nil
}

func (s *MemoryStore) All(ctx context.Context) ([]model.Card, error) {
	return s.List(ctx, model.CardFilter{})
}

// MemoryLog records activation log appends.
type MemoryLog struct {
	mu      sync.Mutex
	Entries []model.ActivationLog
	Err     error
}

func (l *MemoryLog) Append(_ context.Context, code, status, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.Entries = append(l.Entries, model.ActivationLog{
		ID:             uint(len(l.Entries) + 1),
		Code:           code,
		Status:         status,
		ErrorMessage:   message,
		ActivationTime: time.Now(),
	})
	return nil
}

func (l *MemoryLog) ListByCode(_ context.Context, code string) ([]model.ActivationLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	logs := []model.ActivationLog{}
	for _, entry := range l.Entries {
		if entry.Code == code {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

// Count returns how many entries for code carry status.
func (l *MemoryLog) Count(code, status string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, entry := range l.Entries {
		if entry.Code == code && entry.Status == status {
			n++
		}
	}
	return n
}

// FakeAdapter answers with a scripted function and counts calls per code.
type FakeAdapter struct {
	IssuerKind lib.IssuerKind
	Respond    func(code string, call int) lib.RawResponse

	mu    sync.Mutex
	calls map[string]int
	total int64
}

func (f *FakeAdapter) Kind() lib.IssuerKind {
	return f.IssuerKind
}

func (f *FakeAdapter) Activate(_ context.Context, code string) lib.RawResponse {
	atomic.AddInt64(&f.total, 1)
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[code]++
	call := f.calls[code]
	f.mu.Unlock()
	return f.Respond(code, call)
}

func (f *FakeAdapter) Calls(code string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[code]
}

func (f *FakeAdapter) Total() int {
	return int(atomic.LoadInt64(&f.total))
}

// ActivatedResponse is a successful mercury-style payload.
func ActivatedResponse(pan string) lib.RawResponse {
	return lib.RawResponse{
		"success": true,
		"card": map[string]interface{}{
			"pan":       pan,
			"cvv":       "689",
			"exp_month": "12",
			"exp_year":  "2031",
		},
		"expire_minutes": float64(120),
	}
}
