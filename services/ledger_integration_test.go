package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"cat-game-backend/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB connects to TEST_DATABASE_URL. Tests using it are skipped when
// the variable is unset.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createTestProfile(t *testing.T, db *gorm.DB, balance int64) *models.Profile {
	t.Helper()
	user := models.User{Username: "it_" + uuid.NewString()[:12], CredentialLess: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	profile := models.Profile{UserID: user.ID, ReferralCode: NewReferralCode(), Balance: balance}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return &profile
}

func TestLedgerConcurrentDebits(t *testing.T) {
	db := openTestDB(t)
	ledger := NewLedger(db)
	profile := createTestProfile(t, db, 1000)

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failed    int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Debit(context.Background(), profile.ID, 150, models.LedgerReasonFailureAttempt)
			mu.Lock()
			defer mu.Unlock()
			var insufficient *InsufficientBalanceError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &insufficient):
				failed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 6 || failed != workers-6 {
		t.Errorf("succeeded=%d failed=%d, want 6 and %d", succeeded, failed, workers-6)
	}

	var stored models.Profile
	if err := db.First(&stored, "id = ?", profile.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Balance != 100 {
		t.Errorf("balance = %d, want 100", stored.Balance)
	}

	var journal int64
	db.Model(&models.CoinTransaction{}).Where("profile_id = ?", profile.ID).Count(&journal)
	if journal != 6 {
		t.Errorf("journal rows = %d, want 6", journal)
	}
}

func TestPromoMaxRedemptionsUnderLoad(t *testing.T) {
	db := openTestDB(t)
	svc := NewRedemptionService(db, NewLedger(db))

	code := "IT" + uuid.NewString()[:8]
	promo := models.PromoCode{Code: NormalizeCode(code), Reward: 25, MaxRedemptions: 3, IsActive: true}
	if err := db.Create(&promo).Error; err != nil {
		t.Fatalf("failed to create promo: %v", err)
	}

	const players = 8
	profiles := make([]*models.Profile, players)
	for i := range profiles {
		profiles[i] = createTestProfile(t, db, 0)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, p := range profiles {
		wg.Add(1)
		go func(profileID string) {
			defer wg.Done()
			if _, err := svc.RedeemPromo(context.Background(), profileID, code); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(p.ID)
	}
	wg.Wait()

	if succeeded != 3 {
		t.Errorf("succeeded = %d, want 3", succeeded)
	}

	var stored models.PromoCode
	if err := db.First(&stored, "id = ?", promo.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.RedemptionsCount != 3 || stored.IsActive {
		t.Errorf("count=%d active=%v, want 3 and false", stored.RedemptionsCount, stored.IsActive)
	}

	if _, err := svc.RedeemPromo(context.Background(), profiles[0].ID, code); err == nil {
		t.Error("redeem after exhaustion succeeded")
	}
}

func TestFailureConcurrentStartsChargeOnce(t *testing.T) {
	db := openTestDB(t)
	svc := NewFailureService(db, NewLedger(db))
	profile := createTestProfile(t, db, 100)

	start := time.Now().Add(-time.Minute)
	failure := models.Failure{Name: "it-" + uuid.NewString()[:8], StartTime: &start, AttemptCost: 10, DurationSeconds: 60}
	if err := db.Create(&failure).Error; err != nil {
		t.Fatalf("failed to create failure: %v", err)
	}

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Start(context.Background(), profile.ID, failure.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrRunInProgress):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", succeeded)
	}
	var stored models.Profile
	if err := db.First(&stored, "id = ?", profile.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Balance != 90 {
		t.Errorf("balance = %d, want 90", stored.Balance)
	}
}
