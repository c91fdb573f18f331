package http

import "time"

type BatchActivateRequest struct {
	Codes       []string `json:"card_ids" validate:"required,min=1,dive,required,max=128"`
	Concurrency *int     `json:"concurrency" validate:"omitnil,gte=1,lte=20"`
	MaxRetries  *int     `json:"max_retries" validate:"omitnil,gte=0,lte=10"`
}

const (
	DefaultConcurrency = 5
	DefaultMaxRetries  = 3
)

// CardInfoResponse is the canonical card info as returned to clients.
type CardInfoResponse struct {
	CardNumber     string    `json:"card_number"`
	CVC            string    `json:"card_cvc"`
	ExpDate        string    `json:"card_exp_date"`
	BillingAddress string    `json:"billing_address"`
	Nickname       string    `json:"card_nickname"`
	Limit          string    `json:"card_limit"`
	Status         string    `json:"status"`
	CreateTime     string    `json:"create_time,omitempty"`
	ExpTime        string    `json:"exp_date,omitempty"`
	ValidityHours  *float64  `json:"validity_hours,omitempty"`
	NormalizedAt   time.Time `json:"normalized_at"`
}

type ActivationResponse struct {
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	CardInfo *CardInfoResponse `json:"card_info,omitempty"`
}
