package handler

import (
	dto "cardhub/dto/http"
	"cardhub/dto/model"
	"cardhub/pkg/response"
	"cardhub/service"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

func cardInfoResponse(info *service.CardInfo) *dto.CardInfoResponse {
	if info == nil {
		return nil
	}
	return &dto.CardInfoResponse{
		CardNumber:     info.PAN,
		CVC:            info.CVC,
		ExpDate:        info.ExpDisplay,
		BillingAddress: info.BillingAddress,
		Nickname:       info.Nickname,
		Limit:          info.Limit.String(),
		Status:         info.StatusText,
		CreateTime:     info.CreationTime.String(),
		ExpTime:        info.ExpirationTime.String(),
		ValidityHours:  info.ValidityHours,
		NormalizedAt:   time.Now().UTC(),
	}
}

// ActivateCard redeems a single code. Failures surface as a client error.
func (h *Handler) ActivateCard(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return response.Response(c, fiber.StatusBadRequest, "card id is required")
	}

	result := h.Activation.Activate(c.UserContext(), code)
	if !result.Succeeded {
		status := fiber.StatusBadRequest
		if result.Failure == service.FailureInFlight {
			status = fiber.StatusConflict
		}
		return response.Response(c, status, result.Message)
	}

	return c.JSON(dto.ActivationResponse{
		Success:  true,
		Message:  result.Message,
		CardInfo: cardInfoResponse(result.Info),
	})
}

func (h *Handler) QueryCard(c *fiber.Ctx) error {
	card, err := h.Activation.Query(c.UserContext(), c.Params("code"))
	switch {
	case errors.Is(err, service.ErrCardNotFound):
		return response.Response(c, fiber.StatusNotFound, "card not found")
	case err != nil:
		return response.Response(c, fiber.StatusBadRequest, err.Error())
	case card == nil:
		return response.Response(c, fiber.StatusNotFound, "card not found")
	}
	return response.ResponseMessage(c, fiber.StatusOK, "query succeeded", card)
}

// BatchActivate always answers 200 with per-code detail once the input is valid.
func (h *Handler) BatchActivate(c *fiber.Ctx) error {
	input := new(dto.BatchActivateRequest)
	if err := c.BodyParser(input); err != nil {
		return response.Response(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(input); err != nil {
		return response.Response(c, fiber.StatusBadRequest, err.Error())
	}

	concurrency := dto.DefaultConcurrency
	if input.Concurrency != nil {
		concurrency = *input.Concurrency
	}
	maxRetries := dto.DefaultMaxRetries
	if input.MaxRetries != nil {
		maxRetries = *input.MaxRetries
	}

	result := h.Batch.RunBatch(c.UserContext(), input.Codes, concurrency, maxRetries)
	return response.ResponseMessage(c, fiber.StatusOK, "batch finished", result)
}

const (
	defaultRawLimit = 20
	maxRawLimit     = 100
)

// RawResponses lists the redacted issuer payloads recorded for a code.
func (h *Handler) RawResponses(c *fiber.Ctx) error {
	if h.Raw == nil {
		return response.Response(c, fiber.StatusServiceUnavailable, "raw response audit disabled")
	}
	limit := c.QueryInt("limit", defaultRawLimit)
	if limit < 1 || limit > maxRawLimit {
		return response.Response(c, fiber.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxRawLimit))
	}

	records, err := h.Raw.ListByCode(c.UserContext(), c.Params("code"), int64(limit))
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []model.RawActivationRecord{}
	}
	return response.ResponseMessage(c, fiber.StatusOK, fmt.Sprintf("found %d responses", len(records)), records)
}

// Transactions reports spending history. No issuer exposes it yet, so an
// activated card gets a 400 with the reason.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	card, err := h.Cards.GetByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if card == nil {
		return response.Response(c, fiber.StatusNotFound, "card not found")
	}
	if card.CardNumber == "" {
		return response.Response(c, fiber.StatusBadRequest, "card not activated, no transactions to query")
	}
	return response.Response(c, fiber.StatusBadRequest, "transaction history is not supported by the issuer")
}
