package model

import "time"

const (
	ActivationLogSuccess = "success"
	ActivationLogFailed  = "failed"
)

type ActivationLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Code           string    `gorm:"type:VARCHAR(128);index;not null" json:"card_id"`
	Status         string    `gorm:"type:VARCHAR(20);not null" json:"status"`
	ErrorMessage   string    `gorm:"type:TEXT" json:"error_message,omitempty"`
	ActivationTime time.Time `gorm:"autoCreateTime" json:"activation_time"`
}

func (ActivationLog) TableName() string {
	return "activation_logs"
}
