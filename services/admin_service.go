package services

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"cat-game-backend/models"
	"cat-game-backend/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AdminService backs the operator API.
type AdminService struct {
	DB    *gorm.DB
	Media utils.MediaStore
}

func NewAdminService(db *gorm.DB, media utils.MediaStore) *AdminService {
	return &AdminService{DB: db, Media: media}
}

type FailureInput struct {
	Name             string           `json:"name"`
	StartTime        *time.Time       `json:"start_time"`
	EndTime          *time.Time       `json:"end_time"`
	Reward           int64            `json:"reward"`
	DurationSeconds  int              `json:"duration_seconds"`
	AttemptCost      int64            `json:"attempt_cost"`
	BombsMinCount    int              `json:"bombs_min_count"`
	BombsMaxCount    int              `json:"bombs_max_count"`
	ShopEnabled      bool             `json:"shop_enabled"`
	MaxBonusesPerRun int              `json:"max_bonuses_per_run"`
	BonusPrices      map[string]int64 `json:"bonus_prices"`
	MainPrizeTitle   string           `json:"main_prize_title"`
	MainPrizeImage   string           `json:"main_prize_image"`
}

func (in *FailureInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Validation("name is required")
	}
	if in.StartTime != nil && in.EndTime != nil && !in.EndTime.After(*in.StartTime) {
		return Validation("end_time must be after start_time")
	}
	if in.Reward < 0 || in.AttemptCost < 0 {
		return Validation("reward and attempt_cost must not be negative")
	}
	if in.DurationSeconds <= 0 {
		in.DurationSeconds = 60
	}
	if in.BombsMinCount < 0 || in.BombsMaxCount < in.BombsMinCount {
		return Validation("bombs_max_count must be at least bombs_min_count")
	}
	for bonus, price := range in.BonusPrices {
		if !models.IsBonusType(bonus) {
			return Validation("unknown bonus type %q", bonus)
		}
		if price < 0 {
			return Validation("price of %q must not be negative", bonus)
		}
	}
	return nil
}

// failureWebhookPayload is the body sent to the failure webhooks, minus the secret.
func failureWebhookPayload(f *models.Failure) map[string]any {
	payload := map[string]any{"id": f.ID, "name": f.Name, "reward": f.Reward, "start_time": nil, "end_time": nil}
	if f.StartTime != nil {
		payload["start_time"] = f.StartTime.UTC().Format(time.RFC3339)
	}
	if f.EndTime != nil {
		payload["end_time"] = f.EndTime.UTC().Format(time.RFC3339)
	}
	return payload
}

// CreateFailure stores a new event and queues the created webhook.
func (s *AdminService) CreateFailure(ctx context.Context, in FailureInput) (*models.Failure, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	failure := models.Failure{
		Name:             in.Name,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		Reward:           in.Reward,
		DurationSeconds:  in.DurationSeconds,
		AttemptCost:      in.AttemptCost,
		BombsMinCount:    in.BombsMinCount,
		BombsMaxCount:    in.BombsMaxCount,
		ShopEnabled:      in.ShopEnabled,
		MaxBonusesPerRun: in.MaxBonusesPerRun,
		BonusPrices:      in.BonusPrices,
		MainPrizeTitle:   in.MainPrizeTitle,
		MainPrizeImage:   in.MainPrizeImage,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&failure).Error; err != nil {
			return err
		}
		event := models.FailureWebhookEvent{Kind: models.WebhookFailureCreated, Payload: failureWebhookPayload(&failure)}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("💥 [ADMIN] failure %q created (%s)", failure.Name, failure.ID)
	return &failure, nil
}

// DeleteFailure soft-deletes an event and queues the deleted webhook.
func (s *AdminService) DeleteFailure(ctx context.Context, id string) error {
	if err := checkID("failure id", id); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var failure models.Failure
		if err := tx.Where("id = ?", id).First(&failure).Error; err != nil {
			return notFoundAs(err, NotFound("failure"))
		}
		if err := tx.Delete(&failure).Error; err != nil {
			return err
		}
		event := models.FailureWebhookEvent{Kind: models.WebhookFailureDeleted, Payload: failureWebhookPayload(&failure)}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		log.Printf("🗑️ [ADMIN] failure %q deleted", failure.Name)
		return nil
	})
}

type PromoInput struct {
	Code           string `json:"code"`
	Reward         int64  `json:"reward"`
	MaxRedemptions int    `json:"max_redemptions"`
}

func (s *AdminService) CreatePromo(ctx context.Context, in PromoInput) (*models.PromoCode, error) {
	code := NormalizeCode(in.Code)
	if err := validCode(code); err != nil {
		return nil, err
	}
	if in.Reward < 0 {
		return nil, Validation("reward must not be negative")
	}
	if in.MaxRedemptions <= 0 {
		in.MaxRedemptions = 1
	}

	promo := models.PromoCode{Code: code, Reward: in.Reward, MaxRedemptions: in.MaxRedemptions, IsActive: true}
	if err := s.DB.WithContext(ctx).Create(&promo).Error; err != nil {
		return nil, duplicateAs(err, Conflict("promo code already exists"))
	}
	return &promo, nil
}

// SetBanned bans or unbans a profile from the whole game.
func (s *AdminService) SetBanned(ctx context.Context, profileID string, banned bool) error {
	if err := checkID("profile id", profileID); err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("is_banned", banned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	log.Printf("🚫 [ADMIN] profile %s banned=%v", profileID, banned)
	return nil
}

// BanFromFailure blocks a profile from one event. Repeating it updates the reason.
func (s *AdminService) BanFromFailure(ctx context.Context, profileID, failureID, reason string) (*models.FailureBan, error) {
	if err := checkID("profile_id", profileID); err != nil {
		return nil, err
	}
	if err := checkID("failure id", failureID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var n int64
	if err := db.Model(&models.Failure{}).Where("id = ?", failureID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, NotFound("failure")
	}

	ban := models.FailureBan{ProfileID: profileID, FailureID: failureID, Reason: strings.TrimSpace(reason)}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "failure_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "updated_at"}),
	}).Create(&ban).Error; err != nil {
		return nil, err
	}
	return &ban, nil
}

// UpdateFrontendConfig replaces the single frontend config row.
func (s *AdminService) UpdateFrontendConfig(ctx context.Context, screenTexture string) (*models.FrontendConfig, error) {
	cfg := models.FrontendConfig{ID: 1, ScreenTexture: screenTexture}
	if err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"screen_texture", "updated_at"}),
	}).Create(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UploadMedia stores an operator upload and returns its public URL.
func (s *AdminService) UploadMedia(ctx context.Context, folder, filename, contentType string, body io.Reader) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", Validation("file is required")
	}
	key := utils.MediaKey(folder, filename)
	url, err := s.Media.Put(ctx, key, body, contentType)
	if err != nil {
		log.Printf("❌ [MEDIA] upload of %s failed: %v", key, err)
		return "", err
	}
	return url, nil
}
