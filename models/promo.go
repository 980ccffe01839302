package models

import "time"

// PromoCode is created by an operator and switches itself off once
// RedemptionsCount reaches MaxRedemptions.
type PromoCode struct {
	ID               string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code             string `gorm:"size:32;uniqueIndex;not null" json:"code"` // stored uppercase
	Reward           int64  `gorm:"not null;default:0" json:"reward"`
	MaxRedemptions   int    `gorm:"not null;default:1;check:max_redemptions >= 1" json:"max_redemptions"`
	RedemptionsCount int    `gorm:"not null;default:0" json:"redemptions_count"`
	IsActive         bool   `gorm:"not null;default:true;index" json:"is_active"`

	Timestamps
}

// Remaining is how many more profiles may redeem the code.
func (p *PromoCode) Remaining() int {
	if p.RedemptionsCount >= p.MaxRedemptions {
		return 0
	}
	return p.MaxRedemptions - p.RedemptionsCount
}

// AfterRedemption returns the counter and active flag once one more
// redemption is recorded. The redemption that reaches the maximum switches
// the code off.
func (p *PromoCode) AfterRedemption() (count int, active bool) {
	count = p.RedemptionsCount + 1
	return count, count < p.MaxRedemptions
}

type PromoCodeRedemption struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PromoCodeID string    `gorm:"type:uuid;not null;uniqueIndex:uniq_promo_redemption" json:"promo_code_id"`
	ProfileID   string    `gorm:"type:uuid;not null;uniqueIndex:uniq_promo_redemption;index" json:"profile_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
