package services

import (
	"context"
	"log"
	"strings"
	"time"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FailureService struct {
	DB     *gorm.DB
	Ledger *Ledger
	now    func() time.Time
}

func NewFailureService(db *gorm.DB, ledger *Ledger) *FailureService {
	return &FailureService{DB: db, Ledger: ledger, now: time.Now}
}

type FailureView struct {
	models.Failure
	IsActive    bool `json:"is_active"`
	IsCompleted bool `json:"is_completed"`
}

type RunView struct {
	RunID            string           `json:"run_id"`
	FailureID        string           `json:"failure_id"`
	DurationSeconds  int              `json:"duration_seconds"`
	BombsMinCount    int              `json:"bombs_min_count"`
	BombsMaxCount    int              `json:"bombs_max_count"`
	ShopEnabled      bool             `json:"shop_enabled"`
	MaxBonusesPerRun int              `json:"max_bonuses_per_run"`
	BonusPrices      map[string]int64 `json:"bonus_prices"`
	PurchasedBonuses []string         `json:"purchased_bonuses"`
	Balance          int64            `json:"balance"`
}

type ScoreInput struct {
	FailureID       string `json:"failure_id"`
	Points          int64  `json:"points"`
	DurationSeconds int    `json:"duration_seconds"`
}

// List returns every event with the caller's completion state.
func (s *FailureService) List(ctx context.Context, profileID string) ([]FailureView, error) {
	db := s.DB.WithContext(ctx)

	var failures []models.Failure
	if err := db.Order("start_time DESC NULLS LAST").Find(&failures).Error; err != nil {
		return nil, err
	}

	var scored []string
	if err := db.Model(&models.ScoreEntry{}).
		Where("profile_id = ?", profileID).
		Select("failure_id").
		Scan(&scored).Error; err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(scored))
	for _, id := range scored {
		done[id] = true
	}

	now := s.now()
	views := make([]FailureView, 0, len(failures))
	for _, f := range failures {
		views = append(views, FailureView{Failure: f, IsActive: f.IsActiveAt(now), IsCompleted: done[f.ID]})
	}
	return views, nil
}

// ScoreView is one of the caller's posted results.
type ScoreView struct {
	Points          int64     `json:"points"`
	DurationSeconds int       `json:"duration_seconds"`
	EarnedAt        time.Time `json:"earned_at"`
	FailureID       *string   `json:"failure_id"`
	FailureName     *string   `json:"failure_name"`
}

// Scores lists the caller's results, newest first. Deleted events keep their names.
func (s *FailureService) Scores(ctx context.Context, profileID string) ([]ScoreView, error) {
	var entries []models.ScoreEntry
	if err := s.DB.WithContext(ctx).
		Preload("Failure", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("profile_id = ?", profileID).
		Order("earned_at DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	views := make([]ScoreView, 0, len(entries))
	for _, e := range entries {
		v := ScoreView{Points: e.Points, DurationSeconds: e.DurationSeconds, EarnedAt: e.EarnedAt}
		if e.Failure != nil {
			id, name := e.Failure.ID, e.Failure.Name
			v.FailureID, v.FailureName = &id, &name
		}
		views = append(views, v)
	}
	return views, nil
}

// resolveFailure loads failureID, or the event running right now when it is empty.
func (s *FailureService) resolveFailure(tx *gorm.DB, failureID string) (*models.Failure, error) {
	var f models.Failure
	q := tx
	if failureID != "" {
		if err := checkID("failure_id", failureID); err != nil {
			return nil, err
		}
		q = q.Where("id = ?", failureID)
	} else {
		now := s.now()
		q = q.Where("(start_time IS NULL OR start_time <= ?) AND (end_time IS NULL OR end_time > ?)", now, now).
			Order("start_time DESC NULLS LAST")
	}
	if err := q.First(&f).Error; err != nil {
		return nil, notFoundAs(err, NotFound("failure"))
	}
	return &f, nil
}

// checkEligible applies the ban and one-score rules for profileID on f.
func checkEligible(tx *gorm.DB, profileID string, f *models.Failure) error {
	var banned int64
	if err := tx.Model(&models.FailureBan{}).
		Where("profile_id = ? AND failure_id = ?", profileID, f.ID).
		Count(&banned).Error; err != nil {
		return err
	}
	if banned > 0 {
		return ErrBannedFromEvent
	}

	var scored int64
	if err := tx.Model(&models.ScoreEntry{}).
		Where("profile_id = ? AND failure_id = ?", profileID, f.ID).
		Count(&scored).Error; err != nil {
		return err
	}
	if scored > 0 {
		return ErrAlreadyScored
	}
	return nil
}

// Start opens a run on an active event and charges its attempt cost. The
// profile lock serializes starts, and a run whose timer is still going
// blocks a new one.
func (s *FailureService) Start(ctx context.Context, profileID, failureID string) (*RunView, error) {
	var out RunView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProfile(tx, profileID); err != nil {
			return err
		}

		f, err := s.resolveFailure(tx, failureID)
		if err != nil {
			return err
		}
		now := s.now()
		if !f.IsActiveAt(now) {
			return Validation("failure %q is not active", f.Name)
		}
		if err := checkEligible(tx, profileID, f); err != nil {
			return err
		}

		var running int64
		since := now.Add(-time.Duration(f.DurationSeconds) * time.Second)
		if err := tx.Model(&models.FailureRun{}).
			Where("profile_id = ? AND failure_id = ? AND completed_at IS NULL AND created_at > ?", profileID, f.ID, since).
			Count(&running).Error; err != nil {
			return err
		}
		if running > 0 {
			return ErrRunInProgress
		}

		var balance int64
		if f.AttemptCost > 0 {
			balance, err = s.Ledger.Apply(tx, profileID, -f.AttemptCost, models.LedgerReasonFailureAttempt)
		} else {
			balance, err = currentBalance(tx, profileID)
		}
		if err != nil {
			return err
		}

		run := models.FailureRun{ProfileID: profileID, FailureID: f.ID, PurchasedBonuses: []string{}}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		log.Printf("💥 [FAILURE] profile %s started run %s on %q", profileID, run.ID, f.Name)

		out = runView(f, &run, balance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// lockOpenRun returns the caller's latest unfinished run on failureID.
func lockOpenRun(tx *gorm.DB, profileID, failureID string) (*models.FailureRun, error) {
	var run models.FailureRun
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("profile_id = ? AND failure_id = ? AND completed_at IS NULL", profileID, failureID).
		Order("created_at DESC").
		First(&run).Error; err != nil {
		return nil, notFoundAs(err, NotFound("open run"))
	}
	return &run, nil
}

// BuyBonus sells one bonus for the caller's open run.
func (s *FailureService) BuyBonus(ctx context.Context, profileID, failureID, bonus string) (*RunView, error) {
	bonus = strings.TrimSpace(strings.ToLower(bonus))
	if !models.IsBonusType(bonus) {
		return nil, Validation("unknown bonus type %q", bonus)
	}

	var out RunView
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.resolveFailure(tx, failureID)
		if err != nil {
			return err
		}
		if !f.ShopEnabled {
			return Validation("shop is not enabled for this failure")
		}
		price, ok := f.BonusPrice(bonus)
		if !ok {
			return Validation("bonus %q is not on sale", bonus)
		}

		run, err := lockOpenRun(tx, profileID, f.ID)
		if err != nil {
			return err
		}
		if run.HasBonus(bonus) {
			return Conflict("bonus already purchased for this run")
		}
		if f.MaxBonusesPerRun > 0 && len(run.PurchasedBonuses) >= f.MaxBonusesPerRun {
			return Conflict("bonus limit for this run reached")
		}

		var balance int64
		if price > 0 {
			balance, err = s.Ledger.Apply(tx, profileID, -price, models.LedgerReasonFailureBonus)
		} else {
			balance, err = currentBalance(tx, profileID)
		}
		if err != nil {
			return err
		}

		run.PurchasedBonuses = append(run.PurchasedBonuses, bonus)
		if err := tx.Model(run).Select("purchased_bonuses").Updates(run).Error; err != nil {
			return err
		}

		out = runView(f, run, balance)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Complete records the caller's single score for the event and closes the run.
func (s *FailureService) Complete(ctx context.Context, profileID string, in ScoreInput) (*models.ScoreEntry, error) {
	if in.Points < 0 {
		return nil, Validation("points must not be negative")
	}
	if in.DurationSeconds < 0 {
		return nil, Validation("duration_seconds must not be negative")
	}

	var entry models.ScoreEntry
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.resolveFailure(tx, in.FailureID)
		if err != nil {
			return err
		}
		if err := checkEligible(tx, profileID, f); err != nil {
			return err
		}
		run, err := lockOpenRun(tx, profileID, f.ID)
		if err != nil {
			return err
		}

		now := s.now()
		entry = models.ScoreEntry{
			ProfileID:       profileID,
			FailureID:       f.ID,
			Points:          in.Points,
			DurationSeconds: in.DurationSeconds,
			EarnedAt:        now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return duplicateAs(err, ErrAlreadyScored)
		}
		if err := tx.Model(run).Update("completed_at", now).Error; err != nil {
			return err
		}
		log.Printf("🏁 [FAILURE] profile %s scored %d on %q", profileID, in.Points, f.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func runView(f *models.Failure, run *models.FailureRun, balance int64) RunView {
	bonuses := run.PurchasedBonuses
	if bonuses == nil {
		bonuses = []string{}
	}
	return RunView{
		RunID:            run.ID,
		FailureID:        f.ID,
		DurationSeconds:  f.DurationSeconds,
		BombsMinCount:    f.BombsMinCount,
		BombsMaxCount:    f.BombsMaxCount,
		ShopEnabled:      f.ShopEnabled,
		MaxBonusesPerRun: f.MaxBonusesPerRun,
		BonusPrices:      f.BonusPrices,
		PurchasedBonuses: bonuses,
		Balance:          balance,
	}
}
