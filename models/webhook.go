package models

import "time"

type WebhookKind string

const (
	WebhookFailureCreated WebhookKind = "failure_created"
	WebhookFailureDeleted WebhookKind = "failure_deleted"
)

// FailureWebhookEvent is an outbox row written in the same transaction as
// the failure change; workers deliver it later.
type FailureWebhookEvent struct {
	ID          string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Kind        WebhookKind    `gorm:"size:32;not null" json:"kind"`
	Payload     map[string]any `gorm:"type:jsonb;serializer:json" json:"payload"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   string         `gorm:"type:text" json:"last_error,omitempty"`
	DeliveredAt *time.Time     `gorm:"index" json:"delivered_at,omitempty"`
	SkippedAt   *time.Time     `json:"skipped_at,omitempty"`

	Timestamps
}
