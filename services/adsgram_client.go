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
	"strings"

	"cat-game-backend/config"
	"cat-game-backend/utils"

	"github.com/google/uuid"
)

const adsgramService = "adsgram"

// AdsgramPayload is the raw JSON object exchanged with the ad network.
type AdsgramPayload map[string]any

// AssignmentID reads "assignment_id", falling back to "id".
func (p AdsgramPayload) AssignmentID() string {
	for _, key := range []string{"assignment_id", "id"} {
		if v, ok := p[key]; ok && v != nil {
			if id := strings.TrimSpace(fmt.Sprint(v)); id != "" {
				return id
			}
		}
	}
	return ""
}

// AdsgramClient requests and confirms ad-view assignments.
type AdsgramClient interface {
	RequestAssignment(ctx context.Context, userID, placementID string) (AdsgramPayload, error)
	ConfirmAssignment(ctx context.Context, assignmentID, userID string) (AdsgramPayload, error)
}

// NewAdsgramClient returns the HTTP client when credentials are present and
// the offline dummy otherwise.
func NewAdsgramClient(cfg config.AdsgramConfig) AdsgramClient {
	if !cfg.Configured() {
		log.Println("⚠️  [ADSGRAM] credentials are missing; using dummy client")
		return &DummyAdsgramClient{DefaultPlacementID: cfg.DefaultPlacementID}
	}
	return &HTTPAdsgramClient{
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		Token:        cfg.Token,
		AppID:        cfg.AppID,
		RequestPath:  cfg.RequestPath,
		CompletePath: cfg.CompletePath,
		Client:       utils.NewHTTPClient(cfg.Timeout),
	}
}

type HTTPAdsgramClient struct {
	BaseURL      string
	Token        string
	AppID        string
	RequestPath  string
	CompletePath string
	Client       *http.Client
}

func (c *HTTPAdsgramClient) RequestAssignment(ctx context.Context, userID, placementID string) (AdsgramPayload, error) {
	body := map[string]any{
		"app_id":  c.AppID,
		"user_id": userID,
	}
	if placementID != "" {
		body["placement_id"] = placementID
	}
	return c.post(ctx, c.RequestPath, body)
}

func (c *HTTPAdsgramClient) ConfirmAssignment(ctx context.Context, assignmentID, userID string) (AdsgramPayload, error) {
	body := map[string]any{
		"assignment_id": assignmentID,
		"app_id":        c.AppID,
	}
	if userID != "" {
		body["user_id"] = userID
	}
	return c.post(ctx, c.CompletePath, body)
}

func (c *HTTPAdsgramClient) post(ctx context.Context, path string, payload map[string]any) (AdsgramPayload, error) {
	url := c.BaseURL + "/" + strings.TrimLeft(path, "/")

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &IntegrationError{Service: adsgramService, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &IntegrationError{Service: adsgramService, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("X-App-Id", c.AppID)

	resp, err := c.Client.Do(req)
	if err != nil {
		log.Printf("❌ [ADSGRAM] POST %s failed: %v", url, err)
		return nil, &IntegrationError{Service: adsgramService, Err: fmt.Errorf("network request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("❌ [ADSGRAM] POST %s returned %d: %s", url, resp.StatusCode, string(body))
		return nil, &IntegrationError{
			Service: adsgramService,
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var out AdsgramPayload
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil || out == nil {
		if err == nil {
			err = errors.New("empty object")
		}
		return nil, &IntegrationError{Service: adsgramService, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	return out, nil
}

// DummyAdsgramClient synthesizes replies for environments without credentials.
type DummyAdsgramClient struct {
	DefaultPlacementID string
}

func (d *DummyAdsgramClient) RequestAssignment(_ context.Context, userID, placementID string) (AdsgramPayload, error) {
	if placementID == "" {
		placementID = d.DefaultPlacementID
	}
	id := "dummy-" + uuid.NewString()
	log.Printf("[ADSGRAM] dummy assignment %s for user %s", id, userID)
	return AdsgramPayload{
		"assignment_id": id,
		"placement_id":  placementID,
		"reward":        0,
		"dummy":         true,
	}, nil
}

func (d *DummyAdsgramClient) ConfirmAssignment(_ context.Context, assignmentID, userID string) (AdsgramPayload, error) {
	log.Printf("[ADSGRAM] confirming dummy assignment %s for user %s", assignmentID, userID)
	return AdsgramPayload{
		"assignment_id": assignmentID,
		"status":        "completed",
		"dummy":         true,
	}, nil
}
