package handler

import (
	dto "cardhub/dto/http"
	"cardhub/dto/model"
	"cardhub/pkg/response"
	"cardhub/service"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func (h *Handler) CreateCard(c *fiber.Ctx) error {
	input := new(dto.CardCreateRequest)
	if err := c.BodyParser(input); err != nil {
		return response.Response(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(input); err != nil {
		return response.Response(c, fiber.StatusBadRequest, err.Error())
	}

	ctx := c.UserContext()
	existing, err := h.Cards.GetByCode(ctx, input.Code)
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if existing != nil {
		return response.Response(c, fiber.StatusBadRequest, "card already exists")
	}

	card, err := h.Cards.CreateRecord(ctx, &model.Card{
		Code:          input.Code,
		Nickname:      input.Nickname,
		Limit:         input.Limit,
		ValidityHours: input.ValidityHours,
		CardHeader:    input.CardHeader,
		External:      input.External,
	})
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(card)
}

func (h *Handler) ListCards(c *fiber.Ctx) error {
	query := dto.CardListQuery{Limit: 100}
	if err := c.QueryParser(&query); err != nil {
		return response.Response(c, fiber.StatusBadRequest, "Invalid query")
	}
	if err := h.Validate.Struct(query); err != nil {
		return response.Response(c, fiber.StatusBadRequest, err.Error())
	}

	cards, err := h.Cards.List(c.UserContext(), model.CardFilter{
		Skip:   query.Skip,
		Limit:  query.Limit,
		Status: query.Status,
		Search: query.Search,
	})
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(cards)
}

func (h *Handler) GetCard(c *fiber.Ctx) error {
	card, err := h.Cards.GetByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if card == nil {
		return response.Response(c, fiber.StatusNotFound, "card not found")
	}
	return c.JSON(card)
}

func (h *Handler) UpdateCard(c *fiber.Ctx) error {
	input := new(dto.CardUpdateRequest)
	if err := c.BodyParser(input); err != nil {
		return response.Response(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.Validate.Struct(input); err != nil {
		return response.Response(c, fiber.StatusBadRequest, err.Error())
	}

	fields := map[string]interface{}{}
	if input.Nickname != nil {
		fields["nickname"] = *input.Nickname
	}
	if input.Limit != nil {
		fields["card_limit"] = *input.Limit
	}
	if input.ValidityHours != nil {
		fields["validity_hours"] = *input.ValidityHours
	}
	if input.Status != nil {
		fields["status"] = *input.Status
	}

	card, err := h.Cards.Update(c.UserContext(), c.Params("code"), fields)
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if card == nil {
		return response.Response(c, fiber.StatusNotFound, "card not found")
	}
	return c.JSON(card)
}

func (h *Handler) DeleteCard(c *fiber.Ctx) error {
	deleted, err := h.Cards.SoftDelete(c.UserContext(), c.Params("code"))
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if !deleted {
		return response.Response(c, fiber.StatusNotFound, "card not found")
	}
	return response.ResponseMessage(c, fiber.StatusOK, "card deleted", nil)
}

func (h *Handler) toggle(c *fiber.Ctx, flag model.CardFlag) error {
	card, err := h.Cards.Toggle(c.UserContext(), c.Params("code"), flag, h.now())
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if card == nil {
		return response.Response(c, fiber.StatusNotFound, "card not found")
	}

	var on bool
	switch flag {
	case model.FlagRefund:
		on = card.RefundRequested
	case model.FlagUsed:
		on = card.IsUsed
	case model.FlagSold:
		on = card.IsSold
	}
	column, _ := flag.Columns()
	message := fmt.Sprintf("%s flag cleared", flag)
	if on {
		message = fmt.Sprintf("%s flag set", flag)
	}
	return response.ResponseMessage(c, fiber.StatusOK, message, fiber.Map{column: on})
}

func (h *Handler) ToggleRefund(c *fiber.Ctx) error {
	return h.toggle(c, model.FlagRefund)
}

func (h *Handler) ToggleUsed(c *fiber.Ctx) error {
	return h.toggle(c, model.FlagUsed)
}

func (h *Handler) ToggleSold(c *fiber.Ctx) error {
	return h.toggle(c, model.FlagSold)
}

func (h *Handler) ActivationLogs(c *fiber.Ctx) error {
	logs, err := h.Logs.ListByCode(c.UserContext(), c.Params("code"))
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(logs)
}

func (h *Handler) UnreturnedCardNumbers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if _, err := h.Cards.MarkExpired(ctx, h.now()); err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	numbers, err := h.Cards.FindUnreturned(ctx)
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	return response.ResponseMessage(c, fiber.StatusOK,
		fmt.Sprintf("found %d expired cards without refund", len(numbers)),
		fiber.Map{"count": len(numbers), "card_numbers": numbers})
}

func (h *Handler) CardsByLimit(c *fiber.Ctx) error {
	limit, err := decimal.NewFromString(c.Query("limit"))
	if err != nil {
		return response.Response(c, fiber.StatusBadRequest, "limit must be a number")
	}

	ctx := c.UserContext()
	if _, err := h.Cards.MarkExpired(ctx, h.now()); err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	cards, err := h.Cards.FindByLimit(ctx, limit)
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	if len(cards) == 0 {
		return c.JSON(fiber.Map{
			"success": false,
			"message": fmt.Sprintf("no cards with limit $%s", limit.String()),
			"data":    fiber.Map{"count": 0, "cards": []model.Card{}},
		})
	}
	return response.ResponseMessage(c, fiber.StatusOK,
		fmt.Sprintf("found %d cards with limit $%s", len(cards), limit.String()),
		fiber.Map{"count": len(cards), "cards": cards})
}

func (h *Handler) ExportCards(c *fiber.Ctx) error {
	cards, err := h.Cards.All(c.UserContext())
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, err.Error())
	}
	content, err := service.GenerateCardExcel(cards)
	if err != nil {
		return response.Response(c, fiber.StatusInternalServerError, "failed to generate export")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="cards-%s.xlsx"`, h.now().Format("20060102-150405")))
	return c.Send(content)
}
