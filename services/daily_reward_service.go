package services

import (
	"context"
	"log"
	"time"

	"cat-game-backend/models"

	"gorm.io/gorm"
)

type DailyRewardService struct {
	DB     *gorm.DB
	Ledger *Ledger
	Zone   *time.Location
	now    func() time.Time
}

func NewDailyRewardService(db *gorm.DB, ledger *Ledger, zone *time.Location) *DailyRewardService {
	if zone == nil {
		zone = time.UTC
	}
	return &DailyRewardService{DB: db, Ledger: ledger, Zone: zone, now: time.Now}
}

type DailyRewardStatus struct {
	Rewards       []models.DailyReward `json:"rewards"`
	Streak        int                  `json:"streak"`
	LastClaimDate *string              `json:"last_claim_date"`
	TodayClaimed  bool                 `json:"today_claimed"`
	NextDay       int                  `json:"next_day"`
	CurrentDay    int                  `json:"current_day"`
}

type DailyClaimResult struct {
	DayNumber    int   `json:"day_number"`
	RewardAmount int64 `json:"reward_amount"`
	Streak       int   `json:"streak"`
	Balance      int64 `json:"balance"`
}

// CalendarDate returns the date t falls on in loc, as midnight UTC so it
// compares cleanly with DATE columns.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextStreakDay is the streak day a claim on today earns. A claim on the day
// after last continues the streak and wraps to 1 after the final day; any
// gap starts over. claimed is true when today was already claimed.
func NextStreakDay(last *time.Time, streak int, today time.Time) (day int, claimed bool) {
	if last == nil || streak <= 0 {
		return 1, false
	}
	lastDate := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case lastDate.Equal(today):
		return streak, true
	case lastDate.AddDate(0, 0, 1).Equal(today):
		if streak >= models.MaxDailyRewardDay {
			return 1, false
		}
		return streak + 1, false
	default:
		return 1, false
	}
}

func (s *DailyRewardService) Status(ctx context.Context, profileID string) (*DailyRewardStatus, error) {
	db := s.DB.WithContext(ctx)

	var profile models.Profile
	if err := db.Select("id", "daily_streak", "last_daily_claim_date").
		Where("id = ?", profileID).
		First(&profile).Error; err != nil {
		return nil, notFoundAs(err, ErrProfileNotFound)
	}

	var rewards []models.DailyReward
	if err := db.Order("day_number").Find(&rewards).Error; err != nil {
		return nil, err
	}

	today := CalendarDate(s.now(), s.Zone)
	next, claimed := NextStreakDay(profile.LastDailyClaimDate, profile.DailyStreak, today)

	status := &DailyRewardStatus{
		Rewards:      rewards,
		Streak:       profile.DailyStreak,
		TodayClaimed: claimed,
		NextDay:      next,
		CurrentDay:   next,
	}
	if claimed {
		status.NextDay = next%models.MaxDailyRewardDay + 1
	}
	if !claimed && next == 1 {
		// A broken streak shows as zero until the next claim.
		status.Streak = 0
	}
	if profile.LastDailyClaimDate != nil {
		d := profile.LastDailyClaimDate.Format(time.DateOnly)
		status.LastClaimDate = &d
	}
	return status, nil
}

// Claim records today's claim and pays the reward for the resulting streak day.
func (s *DailyRewardService) Claim(ctx context.Context, profileID string) (*DailyClaimResult, error) {
	today := CalendarDate(s.now(), s.Zone)

	var out DailyClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := lockProfile(tx, profileID)
		if err != nil {
			return err
		}

		day, claimed := NextStreakDay(profile.LastDailyClaimDate, profile.DailyStreak, today)
		if claimed {
			return ErrAlreadyClaimed
		}

		var reward models.DailyReward
		if err := tx.Where("day_number = ?", day).First(&reward).Error; err != nil {
			return notFoundAs(err, NotFound("daily reward"))
		}

		claim := models.DailyRewardClaim{
			ProfileID:      profileID,
			ClaimedForDate: today,
			SequenceDay:    day,
			DayNumber:      reward.DayNumber,
			RewardAmount:   reward.RewardAmount,
		}
		if err := tx.Create(&claim).Error; err != nil {
			return duplicateAs(err, ErrAlreadyClaimed)
		}

		if err := tx.Model(&models.Profile{}).
			Where("id = ?", profileID).
			Updates(map[string]any{"daily_streak": day, "last_daily_claim_date": today}).Error; err != nil {
			return err
		}

		balance, err := s.Ledger.Payout(tx, profileID, reward.RewardAmount, models.LedgerReasonDailyReward)
		if err != nil {
			return err
		}
		log.Printf("📅 [DAILY] profile %s claimed day %d (+%d)", profileID, day, reward.RewardAmount)

		out = DailyClaimResult{DayNumber: day, RewardAmount: reward.RewardAmount, Streak: day, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
