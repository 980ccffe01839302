package services

import (
	"context"
	"log"

	"cat-game-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the only code path that changes a profile's balance.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db}
}

// Apply adjusts the balance of profileID by delta inside tx and returns the
// new balance. The profile row stays locked until tx ends, so callers can
// record their guard rows in the same transaction.
func (l *Ledger) Apply(tx *gorm.DB, profileID string, delta int64, reason models.LedgerReason) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}

	var profile models.Profile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "balance").
		Where("id = ?", profileID).
		First(&profile).Error; err != nil {
		return 0, notFoundAs(err, ErrProfileNotFound)
	}

	if delta < 0 && profile.Balance < -delta {
		return profile.Balance, &InsufficientBalanceError{Balance: profile.Balance, Required: -delta}
	}

	if err := tx.Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("balance", gorm.Expr("balance + ?", delta)).Error; err != nil {
		return 0, err
	}

	newBalance := profile.Balance + delta
	entry := models.CoinTransaction{
		ProfileID:    profileID,
		Delta:        delta,
		BalanceAfter: newBalance,
		Reason:       reason,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, err
	}

	log.Printf("[LEDGER] profile=%s delta=%+d reason=%s balance=%d", profileID, delta, reason, newBalance)
	return newBalance, nil
}

// Credit adds amount in its own transaction.
func (l *Ledger) Credit(ctx context.Context, profileID string, amount int64, reason models.LedgerReason) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return l.run(ctx, profileID, amount, reason)
}

// Debit removes amount in its own transaction, failing with
// *InsufficientBalanceError when the balance is too low.
func (l *Ledger) Debit(ctx context.Context, profileID string, amount int64, reason models.LedgerReason) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return l.run(ctx, profileID, -amount, reason)
}

func (l *Ledger) run(ctx context.Context, profileID string, delta int64, reason models.LedgerReason) (int64, error) {
	var balance int64
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = l.Apply(tx, profileID, delta, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Payout credits amount inside tx when it is positive and otherwise just
// reports the current balance.
func (l *Ledger) Payout(tx *gorm.DB, profileID string, amount int64, reason models.LedgerReason) (int64, error) {
	if amount > 0 {
		return l.Apply(tx, profileID, amount, reason)
	}
	return currentBalance(tx, profileID)
}

func currentBalance(tx *gorm.DB, profileID string) (int64, error) {
	var balance int64
	err := tx.Model(&models.Profile{}).Select("balance").Where("id = ?", profileID).Scan(&balance).Error
	return balance, err
}

// lockProfile re-reads the full profile row under FOR UPDATE.
func lockProfile(tx *gorm.DB, profileID string) (*models.Profile, error) {
	var profile models.Profile
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", profileID).
		First(&profile).Error; err != nil {
		return nil, notFoundAs(err, ErrProfileNotFound)
	}
	return &profile, nil
}
