package services

import (
	"context"
	"log"
	"strings"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCodeLength = 32

// RedemptionService handles one-shot codes: promo codes and referral links.
type RedemptionService struct {
	DB     *gorm.DB
	Ledger *Ledger
}

func NewRedemptionService(db *gorm.DB, ledger *Ledger) *RedemptionService {
	return &RedemptionService{DB: db, Ledger: ledger}
}

type PromoResult struct {
	Code      string `json:"code"`
	Reward    int64  `json:"reward"`
	Balance   int64  `json:"balance"`
	Remaining int    `json:"remaining"`
}

// NormalizeCode trims and uppercases a user-typed code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func validCode(code string) error {
	if code == "" {
		return Validation("code is required")
	}
	if len(code) > maxCodeLength {
		return Validation("code must be at most %d characters", maxCodeLength)
	}
	return nil
}

// RedeemPromo records a redemption of code by profileID and pays the reward,
// all in one transaction holding the promo row lock.
func (s *RedemptionService) RedeemPromo(ctx context.Context, profileID, rawCode string) (*PromoResult, error) {
	code := NormalizeCode(rawCode)
	if err := validCode(code); err != nil {
		return nil, err
	}

	var result PromoResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var promo models.PromoCode
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&promo).Error; err != nil {
			return notFoundAs(err, NotFound("promo code"))
		}

		var already int64
		if err := tx.Model(&models.PromoCodeRedemption{}).
			Where("promo_code_id = ? AND profile_id = ?", promo.ID, profileID).
			Count(&already).Error; err != nil {
			return err
		}
		if already > 0 {
			return ErrAlreadyRedeemed
		}
		// Switched-off codes look unknown to everyone who has not used them.
		if !promo.IsActive {
			return NotFound("promo code")
		}
		if promo.Remaining() <= 0 {
			return ErrPromoExhausted
		}

		redemption := models.PromoCodeRedemption{PromoCodeID: promo.ID, ProfileID: profileID}
		if err := tx.Create(&redemption).Error; err != nil {
			return duplicateAs(err, ErrAlreadyRedeemed)
		}

		count, active := promo.AfterRedemption()
		if err := tx.Model(&models.PromoCode{}).
			Where("id = ?", promo.ID).
			Updates(map[string]any{
				"redemptions_count": gorm.Expr("redemptions_count + 1"),
				"is_active":         active,
			}).Error; err != nil {
			return err
		}
		if !active {
			log.Printf("[PROMO] code %s exhausted after %d redemptions", promo.Code, count)
		}

		balance, err := s.Ledger.Payout(tx, profileID, promo.Reward, models.LedgerReasonPromo)
		if err != nil {
			return err
		}

		result = PromoResult{
			Code:      promo.Code,
			Reward:    promo.Reward,
			Balance:   balance,
			Remaining: promo.MaxRedemptions - count,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

type ReferralResult struct {
	ReferrerCode string `json:"referrer_code"`
	Reward       int64  `json:"reward"`
	Balance      int64  `json:"balance"`
}

// ApplyReferral links profileID to the owner of code. The link is set at
// most once and never changes afterwards.
func (s *RedemptionService) ApplyReferral(ctx context.Context, profileID, rawCode string) (*ReferralResult, error) {
	code := NormalizeCode(rawCode)
	if err := validCode(code); err != nil {
		return nil, err
	}

	var result ReferralResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := lockProfile(tx, profileID)
		if err != nil {
			return err
		}
		if profile.ReferralCode == code {
			return ErrOwnReferralCode
		}
		if profile.ReferredByID != nil {
			return ErrAlreadyReferred
		}

		var referrer models.Profile
		if err := tx.Select("id", "referral_code").
			Where("referral_code = ?", code).
			First(&referrer).Error; err != nil {
			return notFoundAs(err, NotFound("referral code"))
		}
		if referrer.ID == profile.ID {
			return ErrOwnReferralCode
		}

		res := tx.Model(&models.Profile{}).
			Where("id = ? AND referred_by_id IS NULL", profile.ID).
			Update("referred_by_id", referrer.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReferred
		}

		var cfg models.ReferralProgramConfig
		if err := tx.Order("id").Limit(1).Find(&cfg).Error; err != nil {
			return err
		}

		balance, err := s.Ledger.Payout(tx, profileID, cfg.RewardForActivation, models.LedgerReasonReferral)
		if err != nil {
			return err
		}
		result = ReferralResult{ReferrerCode: referrer.ReferralCode, Reward: cfg.RewardForActivation, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
