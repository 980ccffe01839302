package models

import "time"

type AdsgramStatus string

const (
	AdsgramStatusRequested AdsgramStatus = "requested"
	AdsgramStatusCompleted AdsgramStatus = "completed"
	AdsgramStatusFailed    AdsgramStatus = "failed"
)

// AdsgramAssignment mirrors one ad-view task handed out by the ad network.
type AdsgramAssignment struct {
	ID                   string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID            string         `gorm:"type:uuid;index;not null" json:"-"`
	ExternalAssignmentID string         `gorm:"size:255;uniqueIndex;not null" json:"assignment_id"`
	PlacementID          string         `gorm:"size:255" json:"placement_id"`
	Status               AdsgramStatus  `gorm:"size:32;index;not null;default:'requested'" json:"status"`
	Payload              map[string]any `gorm:"type:jsonb;serializer:json" json:"payload"`
	CompletedAt          *time.Time     `json:"completed_at"`

	Timestamps
}

type AdsgramBlock struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	BlockID  string `gorm:"size:255;uniqueIndex;not null" json:"block_id"`
	IsActive bool   `gorm:"not null;default:true" json:"-"`

	Timestamps
}
