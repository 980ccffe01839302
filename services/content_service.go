package services

import (
	"context"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentService serves operator-managed content: rules, sponsor buttons and
// the frontend config.
type ContentService struct {
	DB     *gorm.DB
	Ledger *Ledger
}

func NewContentService(db *gorm.DB, ledger *Ledger) *ContentService {
	return &ContentService{DB: db, Ledger: ledger}
}

type AdButtonView struct {
	models.AdvertisementButton
	AvailableClaims int `json:"available_claims"`
}

type AdClaimResult struct {
	ButtonID        string `json:"button_id"`
	Reward          int64  `json:"reward"`
	Balance         int64  `json:"balance"`
	AvailableClaims int    `json:"available_claims"`
}

func (s *ContentService) Rules(ctx context.Context) ([]models.RuleCategory, error) {
	var rules []models.RuleCategory
	err := s.DB.WithContext(ctx).Order("id").Find(&rules).Error
	return rules, err
}

// AdButtons lists active buttons with how many more times the caller may claim each.
func (s *ContentService) AdButtons(ctx context.Context, profileID string) ([]AdButtonView, error) {
	db := s.DB.WithContext(ctx)

	var buttons []models.AdvertisementButton
	if err := db.Where("is_active = ?", true).Order("sort_order").Order("created_at").Find(&buttons).Error; err != nil {
		return nil, err
	}

	var counts []struct {
		ButtonID string
		N        int
	}
	if err := db.Model(&models.AdvertisementClaim{}).
		Select("button_id, COUNT(*) AS n").
		Where("profile_id = ?", profileID).
		Group("button_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	claimed := make(map[string]int, len(counts))
	for _, c := range counts {
		claimed[c.ButtonID] = c.N
	}

	views := make([]AdButtonView, 0, len(buttons))
	for _, b := range buttons {
		views = append(views, AdButtonView{AdvertisementButton: b, AvailableClaims: max(b.MaxClaims-claimed[b.ID], 0)})
	}
	return views, nil
}

// ClaimAdButton pays the button reward while the caller has claims left.
func (s *ContentService) ClaimAdButton(ctx context.Context, profileID, buttonID string) (*AdClaimResult, error) {
	if err := checkID("advertisement id", buttonID); err != nil {
		return nil, err
	}

	var out AdClaimResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockProfile(tx, profileID); err != nil {
			return err
		}

		var button models.AdvertisementButton
		if err := tx.Where("id = ? AND is_active = ?", buttonID, true).First(&button).Error; err != nil {
			return notFoundAs(err, NotFound("advertisement"))
		}

		var used int64
		if err := tx.Model(&models.AdvertisementClaim{}).
			Where("button_id = ? AND profile_id = ?", button.ID, profileID).
			Count(&used).Error; err != nil {
			return err
		}
		if int(used) >= button.MaxClaims {
			return Conflict("advertisement reward already claimed")
		}

		claim := models.AdvertisementClaim{ButtonID: button.ID, ProfileID: profileID, Reward: button.RewardAmount}
		if err := tx.Create(&claim).Error; err != nil {
			return err
		}

		balance, err := s.Ledger.Payout(tx, profileID, button.RewardAmount, models.LedgerReasonAdButton)
		if err != nil {
			return err
		}
		out = AdClaimResult{
			ButtonID:        button.ID,
			Reward:          button.RewardAmount,
			Balance:         balance,
			AvailableClaims: button.MaxClaims - int(used) - 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FrontendConfig returns the single config row, creating an empty one on first use.
func (s *ContentService) FrontendConfig(ctx context.Context) (*models.FrontendConfig, error) {
	var cfg models.FrontendConfig
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Where(models.FrontendConfig{ID: 1}).
		FirstOrCreate(&cfg).Error
	return &cfg, err
}
