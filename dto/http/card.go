package http

import "github.com/shopspring/decimal"

type CardCreateRequest struct {
	Code          string          `json:"card_id" validate:"required,max=128"`
	Nickname      string          `json:"card_nickname" validate:"max=255"`
	Limit         decimal.Decimal `json:"card_limit"`
	ValidityHours *float64        `json:"validity_hours" validate:"omitempty,gte=0"`
	CardHeader    string          `json:"card_header" validate:"max=32"`
	External      bool            `json:"is_external"`
}

type CardUpdateRequest struct {
	Nickname      *string          `json:"card_nickname" validate:"omitempty,max=255"`
	Limit         *decimal.Decimal `json:"card_limit"`
	ValidityHours *float64         `json:"validity_hours" validate:"omitempty,gte=0"`
	Status        *string          `json:"status" validate:"omitempty,oneof=pending activated expired deleted"`
}

type CardListQuery struct {
	Skip   int    `query:"skip" validate:"gte=0"`
	Limit  int    `query:"limit" validate:"gte=1,lte=1000"`
	Status string `query:"status"`
	Search string `query:"search"`
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}
