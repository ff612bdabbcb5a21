package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is a received ERP webhook, kept for auditing and replay
type WebhookEvent struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"` // UUID
	Event     string         `gorm:"size:64;index" json:"event"`
	InvoiceID int64          `gorm:"index" json:"invoiceId"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
