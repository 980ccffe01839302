package models

import "time"

// LedgerReason tags every CoinTransaction with the feature that caused it.
type LedgerReason string

const (
	LedgerReasonTask            LedgerReason = "task"
	LedgerReasonPromo           LedgerReason = "promo"
	LedgerReasonReferral        LedgerReason = "referral"
	LedgerReasonDailyReward     LedgerReason = "daily_reward"
	LedgerReasonQuiz            LedgerReason = "quiz"
	LedgerReasonSimulationStart LedgerReason = "simulation_start"
	LedgerReasonSimulationPrize LedgerReason = "simulation_prize"
	LedgerReasonSimulationAd    LedgerReason = "simulation_ad"
	LedgerReasonFailureAttempt  LedgerReason = "failure_attempt"
	LedgerReasonFailureBonus    LedgerReason = "failure_bonus"
	LedgerReasonAdButton        LedgerReason = "ad_button"
)

// CoinTransaction is the append-only journal of balance changes.
type CoinTransaction struct {
	ID           string       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID    string       `gorm:"type:uuid;index;not null" json:"profile_id"`
	Delta        int64        `gorm:"not null" json:"delta"`
	BalanceAfter int64        `gorm:"not null" json:"balance_after"`
	Reason       LedgerReason `gorm:"size:32;index;not null" json:"reason"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}
