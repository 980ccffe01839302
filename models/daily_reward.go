package models

import "time"

// MaxDailyRewardDay is the length of one streak cycle.
const MaxDailyRewardDay = 7

type DailyReward struct {
	ID           uint  `gorm:"primaryKey" json:"-"`
	DayNumber    int   `gorm:"uniqueIndex;not null;check:day_number >= 1 and day_number <= 7" json:"day_number"`
	RewardAmount int64 `gorm:"not null;default:0" json:"reward_amount"`

	Timestamps
}

type DailyRewardClaim struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"-"`
	ProfileID      string    `gorm:"type:uuid;not null;uniqueIndex:uniq_daily_claim_day" json:"-"`
	ClaimedForDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_daily_claim_day" json:"claimed_for_date"`
	SequenceDay    int       `gorm:"not null" json:"sequence_day"`
	DayNumber      int       `gorm:"not null" json:"day_number"`
	RewardAmount   int64     `gorm:"not null" json:"reward_amount"`
	ClaimedAt      time.Time `gorm:"autoCreateTime" json:"claimed_at"`
}
