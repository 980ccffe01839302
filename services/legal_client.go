package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"cat-game-backend/config"
	"cat-game-backend/utils"
)

const legalService = "legal-check"

// LegalChecker asks an external service whether a Telegram user accepted
// the legal terms (subscription, offer, age).
type LegalChecker interface {
	Check(ctx context.Context, telegramID int64) (bool, error)
}

func NewLegalClient(cfg config.LegalConfig) LegalChecker {
	if cfg.URL == "" {
		log.Println("⚠️  [LEGAL] LEGAL_CHECK_URL not set; legal checks will fail")
	}
	return &HTTPLegalClient{
		URL:    cfg.URL,
		Secret: cfg.Secret,
		Client: utils.NewHTTPClient(cfg.Timeout),
	}
}

type HTTPLegalClient struct {
	URL    string
	Secret string
	Client *http.Client
}

type legalResponse struct {
	Accepted *bool `json:"accepted"`
}

func (c *HTTPLegalClient) Check(ctx context.Context, telegramID int64) (bool, error) {
	if c.URL == "" {
		return false, &IntegrationError{Service: legalService, Err: errors.New("legal check URL is not configured")}
	}

	jsonData, _ := json.Marshal(map[string]any{"telegram_id": telegramID})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(jsonData))
	if err != nil {
		return false, &IntegrationError{Service: legalService, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Legal-Secret", c.Secret)

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, &IntegrationError{Service: legalService, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("❌ [LEGAL] check returned %d: %s", resp.StatusCode, string(body))
		return false, &IntegrationError{Service: legalService, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var out legalResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, &IntegrationError{Service: legalService, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	if out.Accepted == nil {
		return false, &IntegrationError{Service: legalService, Err: errors.New(`response has no "accepted" field`)}
	}
	return *out.Accepted, nil
}
