package services

import (
	"context"
	"log"
	"time"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SimulationService struct {
	DB       *gorm.DB
	Ledger   *Ledger
	AdReward int64
	Zone     *time.Location
	now      func() time.Time
}

func NewSimulationService(db *gorm.DB, ledger *Ledger, adReward int64, zone *time.Location) *SimulationService {
	if zone == nil {
		zone = time.UTC
	}
	return &SimulationService{DB: db, Ledger: ledger, AdReward: adReward, Zone: zone, now: time.Now}
}

type SimulationStart struct {
	AttemptCost     int64 `json:"attempt_cost"`
	DurationSeconds int   `json:"duration_seconds"`
	Balance         int64 `json:"balance"`
}

type SimulationReward struct {
	Score     int64 `json:"score"`
	Threshold int64 `json:"threshold"`
	Reward    int64 `json:"reward"`
	Balance   int64 `json:"balance"`
}

type AdRewardResult struct {
	Reward  int64 `json:"reward"`
	Balance int64 `json:"balance"`
}

// Config returns the active config, creating the default row on first use.
func (s *SimulationService) Config(ctx context.Context) (*models.SimulationConfig, error) {
	return activeSimulationConfig(s.DB.WithContext(ctx))
}

func activeSimulationConfig(db *gorm.DB) (*models.SimulationConfig, error) {
	var cfgs []models.SimulationConfig
	if err := db.Order("updated_at DESC").Limit(1).Find(&cfgs).Error; err != nil {
		return nil, err
	}
	if len(cfgs) > 0 {
		return &cfgs[0], nil
	}

	cfg := models.DefaultSimulationConfig()
	if err := db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	log.Printf("🎮 [SIMULATION] created default config (cost=%d)", cfg.AttemptCost)
	return &cfg, nil
}

// Start charges the attempt cost for one simulation run.
func (s *SimulationService) Start(ctx context.Context, profileID string) (*SimulationStart, error) {
	var out SimulationStart
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := activeSimulationConfig(tx)
		if err != nil {
			return err
		}

		var balance int64
		if cfg.AttemptCost > 0 {
			balance, err = s.Ledger.Apply(tx, profileID, -cfg.AttemptCost, models.LedgerReasonSimulationStart)
		} else {
			balance, err = currentBalance(tx, profileID)
		}
		if err != nil {
			return err
		}
		out = SimulationStart{AttemptCost: cfg.AttemptCost, DurationSeconds: cfg.DurationSeconds, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimReward pays the prize for the highest threshold reached by score.
// A profile can claim once per calendar day.
func (s *SimulationService) ClaimReward(ctx context.Context, profileID string, score int64) (*SimulationReward, error) {
	if score < 0 {
		return nil, Validation("score must not be negative")
	}
	today := CalendarDate(s.now(), s.Zone)

	var out SimulationReward
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProfile(tx, profileID); err != nil {
			return err
		}

		var claimed int64
		if err := tx.Model(&models.SimulationRewardClaim{}).
			Where("profile_id = ? AND claimed_for_date = ?", profileID, today).
			Count(&claimed).Error; err != nil {
			return err
		}
		if claimed > 0 {
			return ErrAlreadyClaimed
		}

		cfg, err := activeSimulationConfig(tx)
		if err != nil {
			return err
		}
		threshold, amount, ok := cfg.PrizeFor(score)
		if !ok {
			return Validation("score %d is below the first reward threshold", score)
		}

		claim := models.SimulationRewardClaim{
			ProfileID:      profileID,
			ClaimedForDate: today,
			Score:          score,
			Threshold:      threshold,
			Reward:         amount,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return duplicateAs(err, ErrAlreadyClaimed)
		}

		balance, err := s.Ledger.Payout(tx, profileID, amount, models.LedgerReasonSimulationPrize)
		if err != nil {
			return err
		}
		out = SimulationReward{Score: score, Threshold: threshold, Reward: amount, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClaimAdReward pays the ad bonus for a completed ad view of the caller.
// Each view pays once.
func (s *SimulationService) ClaimAdReward(ctx context.Context, profileID, assignmentID string) (*AdRewardResult, error) {
	if assignmentID == "" {
		return nil, Validation("assignment_id is required")
	}

	var out AdRewardResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assignment models.AdsgramAssignment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("external_assignment_id = ? AND profile_id = ?", assignmentID, profileID).
			First(&assignment).Error; err != nil {
			return notFoundAs(err, NotFound("ad assignment"))
		}
		if assignment.Status != models.AdsgramStatusCompleted {
			return ErrAdNotCompleted
		}

		var paid int64
		if err := tx.Model(&models.AdReward{}).
			Where("assignment_id = ?", assignment.ID).
			Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return ErrAdAlreadyPaid
		}

		record := models.AdReward{AssignmentID: assignment.ID, ProfileID: profileID, Reward: s.AdReward}
		if err := tx.Create(&record).Error; err != nil {
			return duplicateAs(err, ErrAdAlreadyPaid)
		}

		balance, err := s.Ledger.Payout(tx, profileID, s.AdReward, models.LedgerReasonSimulationAd)
		if err != nil {
			return err
		}
		out = AdRewardResult{Reward: s.AdReward, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
