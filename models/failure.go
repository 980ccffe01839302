package models

import (
	"time"

	"gorm.io/gorm"
)

// Bonus types sold in the failure shop.
const (
	BonusX2      = "x2"
	BonusX5      = "x5"
	BonusX10     = "x10"
	BonusFreeze  = "freeze"
	BonusNoBombs = "no_bombs"
)

var BonusTypes = []string{BonusX2, BonusX5, BonusX10, BonusFreeze, BonusNoBombs}

func IsBonusType(s string) bool {
	for _, b := range BonusTypes {
		if b == s {
			return true
		}
	}
	return false
}

// Failure is a timed outage event. Each profile may post one score per event.
type Failure struct {
	ID        string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Reward    int64      `gorm:"not null;default:0" json:"reward"`

	// 🎮 Run parameters
	DurationSeconds  int              `gorm:"not null;default:60" json:"duration_seconds"`
	AttemptCost      int64            `gorm:"not null;default:0" json:"attempt_cost"`
	BombsMinCount    int              `gorm:"not null;default:0" json:"bombs_min_count"`
	BombsMaxCount    int              `gorm:"not null;default:0" json:"bombs_max_count"`
	ShopEnabled      bool             `gorm:"not null;default:false" json:"shop_enabled"`
	MaxBonusesPerRun int              `gorm:"not null;default:0" json:"max_bonuses_per_run"`
	BonusPrices      map[string]int64 `gorm:"type:jsonb;serializer:json" json:"bonus_prices"`

	// 🏆 Main prize
	MainPrizeTitle string `gorm:"size:255" json:"main_prize_title,omitempty"`
	MainPrizeImage string `gorm:"type:text" json:"main_prize_image,omitempty"`

	Timestamps
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsActiveAt reports whether now falls in [StartTime, EndTime). Open bounds are unbounded.
func (f *Failure) IsActiveAt(now time.Time) bool {
	if f.StartTime != nil && f.StartTime.After(now) {
		return false
	}
	if f.EndTime != nil && !f.EndTime.After(now) {
		return false
	}
	return true
}

// BonusPrice returns the configured price, or false if the bonus is not on sale.
func (f *Failure) BonusPrice(bonus string) (int64, bool) {
	if !IsBonusType(bonus) {
		return 0, false
	}
	price, ok := f.BonusPrices[bonus]
	return price, ok
}

// FailureRun is one started attempt at a Failure. Bonuses bought during the
// run are kept here until the score is posted.
type FailureRun struct {
	ID               string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID        string     `gorm:"type:uuid;not null;index:idx_failure_run_owner" json:"-"`
	FailureID        string     `gorm:"type:uuid;not null;index:idx_failure_run_owner" json:"failure_id"`
	PurchasedBonuses []string   `gorm:"type:jsonb;serializer:json" json:"purchased_bonuses"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

func (r *FailureRun) HasBonus(bonus string) bool {
	for _, b := range r.PurchasedBonuses {
		if b == bonus {
			return true
		}
	}
	return false
}

type FailureBan struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID string `gorm:"type:uuid;not null;uniqueIndex:uniq_failure_ban_per_profile" json:"profile_id"`
	FailureID string `gorm:"type:uuid;not null;uniqueIndex:uniq_failure_ban_per_profile" json:"failure_id"`
	Reason    string `gorm:"size:255;not null;default:''" json:"reason"`

	Timestamps
}

// ScoreEntry is the single result a profile posts for a Failure.
type ScoreEntry struct {
	ID              string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID       string    `gorm:"type:uuid;not null;uniqueIndex:uniq_score_per_failure" json:"-"`
	FailureID       string    `gorm:"type:uuid;not null;uniqueIndex:uniq_score_per_failure;index" json:"failure_id"`
	Points          int64     `gorm:"not null;default:0;check:points >= 0" json:"points"`
	DurationSeconds int       `gorm:"not null;default:0" json:"duration_seconds"`
	EarnedAt        time.Time `gorm:"not null;index" json:"earned_at"`
	Failure         *Failure  `gorm:"foreignKey:FailureID" json:"-"`

	Timestamps
}
