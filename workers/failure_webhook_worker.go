package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"net/http"
	"time"

	"cat-game-backend/config"
	"cat-game-backend/models"
	"cat-game-backend/utils"

	"gorm.io/gorm"
)

const webhookBatchSize = 50

// WebhookTarget is one receiver of failure notifications.
type WebhookTarget struct {
	URL    string
	Secret string
}

// FailureWebhookDispatcher drains the failure webhook outbox.
type FailureWebhookDispatcher struct {
	DB          *gorm.DB
	HTTPClient  *http.Client
	Targets     map[models.WebhookKind]WebhookTarget
	MaxAttempts int
	now         func() time.Time
}

func NewFailureWebhookDispatcher(db *gorm.DB, cfg config.WebhookConfig) *FailureWebhookDispatcher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &FailureWebhookDispatcher{
		DB:         db,
		HTTPClient: utils.NewHTTPClient(cfg.Timeout),
		Targets: map[models.WebhookKind]WebhookTarget{
			models.WebhookFailureCreated: {URL: cfg.CreateURL, Secret: cfg.CreateSecret},
			models.WebhookFailureDeleted: {URL: cfg.DeleteURL, Secret: cfg.DeleteSecret},
		},
		MaxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// DeliverPending sends every undelivered event that still has attempts left
// and returns how many were delivered.
func (d *FailureWebhookDispatcher) DeliverPending(ctx context.Context) (int, error) {
	var events []models.FailureWebhookEvent
	if err := d.DB.WithContext(ctx).
		Where("delivered_at IS NULL AND skipped_at IS NULL AND attempts < ?", d.MaxAttempts).
		Order("created_at").
		Limit(webhookBatchSize).
		Find(&events).Error; err != nil {
		return 0, fmt.Errorf("failed to load webhook events: %w", err)
	}

	delivered := 0
	for i := range events {
		ev := &events[i]
		target := d.Targets[ev.Kind]

		if target.URL == "" {
			now := d.now()
			if err := d.DB.WithContext(ctx).Model(ev).Update("skipped_at", now).Error; err != nil {
				return delivered, err
			}
			log.Printf("➡️ [WEBHOOK] no URL for %s; event %s skipped", ev.Kind, ev.ID)
			continue
		}

		sendErr := d.send(ctx, target, ev)
		updates := map[string]any{"attempts": gorm.Expr("attempts + 1")}
		if sendErr != nil {
			updates["last_error"] = sendErr.Error()
			log.Printf("❌ [WEBHOOK] %s event %s attempt %d failed: %v", ev.Kind, ev.ID, ev.Attempts+1, sendErr)
		} else {
			updates["delivered_at"] = d.now()
			updates["last_error"] = ""
			delivered++
			log.Printf("✅ [WEBHOOK] %s event %s delivered", ev.Kind, ev.ID)
		}
		if err := d.DB.WithContext(ctx).Model(ev).Updates(updates).Error; err != nil {
			return delivered, err
		}
	}
	return delivered, nil
}

func (d *FailureWebhookDispatcher) send(ctx context.Context, target WebhookTarget, ev *models.FailureWebhookEvent) error {
	body := make(map[string]any, len(ev.Payload)+1)
	maps.Copy(body, ev.Payload)
	body["secret"] = target.Secret

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
