package models

import "time"

// SimulationConfig: the latest row by updated_at is the active one.
type SimulationConfig struct {
	ID              uint   `gorm:"primaryKey" json:"-"`
	AttemptCost     int64  `gorm:"not null;default:200" json:"attempt_cost"`
	DurationSeconds int    `gorm:"not null;default:60" json:"duration_seconds"`
	Description     string `gorm:"type:text" json:"description"`

	// Score needed for each prize level, and the prize paid.
	RewardThreshold1 int64 `gorm:"column:reward_threshold_1;not null;default:100" json:"reward_threshold_1"`
	RewardAmount1    int64 `gorm:"column:reward_amount_1;not null;default:100" json:"reward_amount_1"`
	RewardThreshold2 int64 `gorm:"column:reward_threshold_2;not null;default:500" json:"reward_threshold_2"`
	RewardAmount2    int64 `gorm:"column:reward_amount_2;not null;default:500" json:"reward_amount_2"`
	RewardThreshold3 int64 `gorm:"column:reward_threshold_3;not null;default:1000" json:"reward_threshold_3"`
	RewardAmount3    int64 `gorm:"column:reward_amount_3;not null;default:1000" json:"reward_amount_3"`

	Timestamps
}

// DefaultSimulationConfig is used when the table is empty.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		AttemptCost:      200,
		DurationSeconds:  60,
		Description:      "Default simulation config",
		RewardThreshold1: 100,
		RewardAmount1:    100,
		RewardThreshold2: 500,
		RewardAmount2:    500,
		RewardThreshold3: 1000,
		RewardAmount3:    1000,
	}
}

// PrizeFor returns the highest threshold reached by score and its prize.
// ok is false when score is below every threshold.
func (c *SimulationConfig) PrizeFor(score int64) (threshold, amount int64, ok bool) {
	levels := [][2]int64{
		{c.RewardThreshold3, c.RewardAmount3},
		{c.RewardThreshold2, c.RewardAmount2},
		{c.RewardThreshold1, c.RewardAmount1},
	}
	for _, l := range levels {
		if l[0] > 0 && score >= l[0] {
			return l[0], l[1], true
		}
	}
	return 0, 0, false
}

type SimulationRewardClaim struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ProfileID      string    `gorm:"type:uuid;not null;uniqueIndex:uniq_simulation_claim_day" json:"profile_id"`
	ClaimedForDate time.Time `gorm:"type:date;not null;uniqueIndex:uniq_simulation_claim_day" json:"claimed_for_date"`
	Score          int64     `gorm:"not null" json:"score"`
	Threshold      int64     `gorm:"not null" json:"threshold"`
	Reward         int64     `gorm:"not null" json:"reward"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// AdReward marks a completed ad assignment as already paid out.
type AdReward struct {
	ID           string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AssignmentID string    `gorm:"type:uuid;uniqueIndex;not null" json:"assignment_id"`
	ProfileID    string    `gorm:"type:uuid;index;not null" json:"profile_id"`
	Reward       int64     `gorm:"not null" json:"reward"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
