package models

import "time"

type RuleCategory struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Category string `gorm:"size:255;not null" json:"category"`
	RuleText string `gorm:"type:text;not null" json:"rule_text"`
	Icon     string `gorm:"type:text" json:"icon"`

	Timestamps
}

// AdvertisementButton is a sponsor link that pays RewardAmount up to
// MaxClaims times per profile.
type AdvertisementButton struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title        string `gorm:"size:255;not null" json:"title"`
	Link         string `gorm:"type:text;not null" json:"link"`
	Order        int    `gorm:"column:sort_order;not null;default:0" json:"order"`
	Image        string `gorm:"type:text" json:"image"`
	RewardAmount int64  `gorm:"not null;default:0" json:"reward_amount"`
	MaxClaims    int    `gorm:"not null;default:1" json:"-"`
	IsActive     bool   `gorm:"not null;default:true" json:"-"`

	Timestamps
}

type AdvertisementClaim struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ButtonID  string    `gorm:"type:uuid;not null;index:idx_ad_claim_owner" json:"button_id"`
	ProfileID string    `gorm:"type:uuid;not null;index:idx_ad_claim_owner" json:"-"`
	Reward    int64     `gorm:"not null" json:"reward"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// FrontendConfig is a single-row table read by the client on boot.
type FrontendConfig struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	ScreenTexture string `gorm:"type:text" json:"screen_texture"`

	Timestamps
}
