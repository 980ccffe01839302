package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// AdsgramConfig holds the ad network credentials. When any of BaseURL,
// Token or AppID is empty the dummy client is used.
type AdsgramConfig struct {
	BaseURL            string
	Token              string
	AppID              string
	DefaultPlacementID string
	RequestPath        string
	CompletePath       string
	Timeout            time.Duration
	StaleAfter         time.Duration
}

// Configured reports whether the real HTTP client can be built.
func (a AdsgramConfig) Configured() bool {
	return a.BaseURL != "" && a.Token != "" && a.AppID != ""
}

type LegalConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// WebhookConfig describes where failure create/delete notifications go.
type WebhookConfig struct {
	CreateURL    string
	CreateSecret string
	DeleteURL    string
	DeleteSecret string
	Timeout      time.Duration
	MaxAttempts  int
	Interval     time.Duration
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Enabled reports whether uploads go to R2 instead of the local uploads dir.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.AccessKeyID != "" && r.AccessKeySecret != "" && r.Bucket != ""
}

type AuthConfig struct {
	BotToken       string
	InitDataMaxAge time.Duration
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	AdminToken     string
}

type GameConfig struct {
	SimulationAdReward int64
	DailyRewardZone    *time.Location
}

type Config struct {
	Port           string
	AllowedOrigins []string
	DatabaseURL    string
	SeedFile       string

	Auth     AuthConfig
	Game     GameConfig
	Adsgram  AdsgramConfig
	Legal    LegalConfig
	Webhooks WebhookConfig
	R2       R2Config
}

// Load reads configuration from environment variables.
// Required values are reported together so a misconfigured deploy fails once.
func Load() (*Config, error) {
	var missing []string

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	// The bot token is the HMAC secret for init data; never run without it.
	botToken := strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if botToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if err := validateDatabaseURL(databaseURL); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	zoneName := getEnv("DAILY_REWARD_TIMEZONE", "UTC")
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_REWARD_TIMEZONE %q: %w", zoneName, err)
	}

	return &Config{
		Port:           getEnv("PORT", "5200"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		DatabaseURL:    databaseURL,
		SeedFile:       os.Getenv("SEED_FILE"),
		Auth: AuthConfig{
			BotToken:       botToken,
			InitDataMaxAge: time.Duration(getEnvInt("INIT_DATA_MAX_AGE", 3600)) * time.Second,
			JWTSecret:      jwtSecret,
			AccessTTL:      getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			RefreshTTL:     getEnvDuration("REFRESH_TOKEN_TTL", 24*time.Hour),
			AdminToken:     os.Getenv("ADMIN_API_TOKEN"),
		},
		Game: GameConfig{
			SimulationAdReward: int64(getEnvInt("SIMULATION_AD_REWARD", 200)),
			DailyRewardZone:    zone,
		},
		Adsgram: AdsgramConfig{
			BaseURL:            strings.TrimRight(os.Getenv("ADSGRAM_API_BASE_URL"), "/"),
			Token:              os.Getenv("ADSGRAM_API_TOKEN"),
			AppID:              os.Getenv("ADSGRAM_APP_ID"),
			DefaultPlacementID: os.Getenv("ADSGRAM_DEFAULT_PLACEMENT_ID"),
			RequestPath:        getEnv("ADSGRAM_REQUEST_PATH", "/v1/tasks/request"),
			CompletePath:       getEnv("ADSGRAM_COMPLETE_PATH", "/v1/tasks/complete"),
			Timeout:            time.Duration(getEnvInt("ADSGRAM_TIMEOUT", 10)) * time.Second,
			StaleAfter:         getEnvDuration("ADSGRAM_STALE_AFTER", 24*time.Hour),
		},
		Legal: LegalConfig{
			URL:     os.Getenv("LEGAL_CHECK_URL"),
			Secret:  os.Getenv("LEGAL_CHECK_SECRET"),
			Timeout: time.Duration(getEnvInt("LEGAL_CHECK_TIMEOUT", 10)) * time.Second,
		},
		Webhooks: WebhookConfig{
			CreateURL:    os.Getenv("FAILURE_CREATE_URL"),
			CreateSecret: os.Getenv("FAILURE_CREATE_SECRET"),
			DeleteURL:    os.Getenv("FAILURE_DELETE_URL"),
			DeleteSecret: os.Getenv("FAILURE_DELETE_SECRET"),
			Timeout:      time.Duration(getEnvInt("FAILURE_WEBHOOK_TIMEOUT", 10)) * time.Second,
			MaxAttempts:  getEnvInt("FAILURE_WEBHOOK_MAX_ATTEMPTS", 5),
			Interval:     getEnvDuration("FAILURE_WEBHOOK_INTERVAL", 30*time.Second),
		},
		R2: R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},
	}, nil
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres or postgresql scheme, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

// getEnvDuration accepts Go duration strings ("30m", "24h").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
