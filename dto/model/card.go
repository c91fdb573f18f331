package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CardStatusPending   = "pending"
	CardStatusActivated = "activated"
	CardStatusExpired   = "expired"
	CardStatusDeleted   = "deleted"
)

// Card is the durable record of one redemption code and its lifecycle.
type Card struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	Code                string          `gorm:"type:VARCHAR(128);uniqueIndex;not null" json:"card_id"`
	Nickname            string          `gorm:"type:VARCHAR(255)" json:"card_nickname"`
	Limit               decimal.Decimal `gorm:"column:card_limit;type:NUMERIC(12,2);not null;default:0" json:"card_limit"`
	CardNumber          string          `gorm:"type:VARCHAR(32)" json:"card_number,omitempty"`
	CVC                 string          `gorm:"type:VARCHAR(8)" json:"card_cvc,omitempty"`
	ExpDate             string          `gorm:"type:VARCHAR(8)" json:"card_exp_date,omitempty"`
	BillingAddress      string          `gorm:"type:TEXT" json:"billing_address,omitempty"`
	CardHeader          string          `gorm:"type:VARCHAR(32)" json:"card_header,omitempty"`
	Status              string          `gorm:"type:VARCHAR(20);index;not null;default:pending" json:"status"`
	IsActivated         bool            `gorm:"not null;default:false" json:"is_activated"`
	ActivationTime      *time.Time      `json:"card_activation_time"`
	ValidityHours       *float64        `json:"validity_hours"`
	ExpiresAt           *time.Time      `gorm:"index" json:"exp_date"`
	External            bool            `gorm:"not null;default:false" json:"is_external"`
	RefundRequested     bool            `gorm:"not null;default:false" json:"refund_requested"`
	RefundRequestedTime *time.Time      `json:"refund_requested_time"`
	IsUsed              bool            `gorm:"not null;default:false" json:"is_used"`
	UsedTime            *time.Time      `json:"used_time"`
	IsSold              bool            `gorm:"not null;default:false" json:"is_sold"`
	SoldTime            *time.Time      `json:"sold_time"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"create_time"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt  `gorm:"index" json:"delete_date,omitempty"`
}

func (Card) TableName() string {
	return "cards"
}

// Activated reports whether the code has already been redeemed and recorded.
func (c *Card) Activated() bool {
	return c != nil && c.IsActivated && c.CardNumber != ""
}

// ActivationUpdate carries the canonical fields written when a code is redeemed.
type ActivationUpdate struct {
	CardNumber     string
	CVC            string
	ExpDate        string
	BillingAddress string
	Nickname       string
	Limit          *decimal.Decimal
	ValidityHours  *float64
	ExpiresAt      *time.Time
	ActivatedAt    time.Time
}

// CardFilter narrows card listings.
type CardFilter struct {
	Skip   int
	Limit  int
	Status string
	Search string
}

type CardFlag string

const (
	FlagRefund CardFlag = "refund"
	FlagUsed   CardFlag = "used"
	FlagSold   CardFlag = "sold"
)

// Columns returns the boolean column and its timestamp column.
func (f CardFlag) Columns() (string, string) {
	switch f {
	case FlagRefund:
		return "refund_requested", "refund_requested_time"
	case FlagUsed:
		return "is_used", "used_time"
	default:
		return "is_sold", "sold_time"
	}
}
