package handler

import (
	"cardhub/dto/model"
	"cardhub/service"
	"cardhub/worker"
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CardRepository is everything the card endpoints read and write.
type CardRepository interface {
	service.CardStore
	List(ctx context.Context, filter model.CardFilter) ([]model.Card, error)
	SoftDelete(ctx context.Context, code string) (bool, error)
	Toggle(ctx context.Context, code string, flag model.CardFlag, now time.Time) (*model.Card, error)
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	FindUnreturned(ctx context.Context) ([]string, error)
	FindByLimit(ctx context.Context, limit decimal.Decimal) ([]model.Card, error)
	All(ctx context.Context) ([]model.Card, error)
}

type ActivationLogReader interface {
	ListByCode(ctx context.Context, code string) ([]model.ActivationLog, error)
}

// RawResponseReader lists stored issuer responses, newest first.
type RawResponseReader interface {
	ListByCode(ctx context.Context, code string, limit int64) ([]model.RawActivationRecord, error)
}

type Handler struct {
	Cards      CardRepository
	Logs       ActivationLogReader
	// Raw is nil when MongoDB is not configured.
	Raw        RawResponseReader
	Activation *service.ActivationService
	Batch      *worker.BatchCoordinator
	Validate   *validator.Validate
	Now        func() time.Time
}

func New(cards CardRepository, logs ActivationLogReader, activation *service.ActivationService, batch *worker.BatchCoordinator) *Handler {
	return &Handler{
		Cards:      cards,
		Logs:       logs,
		Activation: activation,
		Batch:      batch,
		Validate:   validator.New(),
		Now:        time.Now,
	}
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Hello handle api status
func Hello(c *fiber.Ctx) error {
	return c.SendString("cardhub API")
}
