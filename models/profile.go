package models

import "time"

// Timestamps is embedded by every table that tracks row lifetime.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// User is the login identity created from Telegram init data.
// Username is stored lowercased and never changes once set.
type User struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Username       string `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName      string `gorm:"size:150" json:"first_name"`
	LastName       string `gorm:"size:150" json:"last_name"`
	CredentialLess bool   `gorm:"not null;default:false" json:"-"` // no password login, ever
	IsStaff        bool   `gorm:"not null;default:false" json:"-"`

	Timestamps
}

// Profile holds the game state of a User: coins, referral link and streak.
// Balance is only ever changed through services.Ledger.
type Profile struct {
	ID           string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID       string  `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	Balance      int64   `gorm:"not null;default:0;check:balance >= 0" json:"balance"`
	ReferralCode string  `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`
	ReferredByID *string `gorm:"type:uuid;index" json:"-"`

	// 📱 Telegram
	TelegramID *int64 `gorm:"index" json:"telegram_id,omitempty"`
	PhotoURL   string `gorm:"type:text" json:"photo_url"`

	IsBanned      bool `gorm:"not null;default:false" json:"is_banned"`
	LegalAccepted bool `gorm:"not null;default:false" json:"legal_accepted"`

	// 📅 Daily rewards
	DailyStreak        int        `gorm:"not null;default:0" json:"daily_streak"`
	LastDailyClaimDate *time.Time `gorm:"type:date" json:"last_daily_claim_date"`

	Timestamps
}

// ReferralProgramConfig is a single-row table.
type ReferralProgramConfig struct {
	ID                  uint  `gorm:"primaryKey" json:"-"`
	RewardForActivation int64 `gorm:"not null;default:0" json:"reward_for_activation"`

	Timestamps
}
