package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// webAppDataKey is the HMAC key Telegram uses to derive the per-bot secret.
const webAppDataKey = "WebAppData"

// DefaultInitDataMaxAge is how long a signed payload stays valid after auth_date.
const DefaultInitDataMaxAge = time.Hour

var (
	ErrInvalidPayload          = errors.New("init data is malformed")
	ErrMissingSignature        = errors.New("init data has no hash")
	ErrSignatureMismatch       = errors.New("init data hash mismatch")
	ErrPayloadExpired          = errors.New("init data has expired")
	ErrInvalidEmbeddedIdentity = errors.New("init data user is not valid JSON")
	ErrIdentityMismatch        = errors.New("init data user does not match telegram_id")
)

// IsInitDataError reports whether err is one of the verification failures above.
func IsInitDataError(err error) bool {
	for _, target := range []error{
		ErrInvalidPayload, ErrMissingSignature, ErrSignatureMismatch,
		ErrPayloadExpired, ErrInvalidEmbeddedIdentity, ErrIdentityMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type InitDataField struct {
	Key   string
	Value string
}

// TelegramUser is the JSON object carried in the "user" field.
type TelegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	PhotoURL     string `json:"photo_url"`
}

// InitData is a verified payload. Fields keep their original order and
// exclude the hash.
type InitData struct {
	Fields []InitDataField
	user   *TelegramUser
}

func (d *InitData) Get(key string) (string, bool) {
	return lookup(d.Fields, key)
}

// User returns the embedded Telegram user, or nil when the payload has none.
func (d *InitData) User() *TelegramUser {
	return d.user
}

func (d *InitData) AuthDate() (time.Time, bool) {
	raw, ok := d.Get("auth_date")
	if !ok {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// InitDataVerifier checks Telegram Mini App init data against a bot token.
type InitDataVerifier struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewInitDataVerifier(botToken string, maxAge time.Duration) (*InitDataVerifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, errors.New("telegram bot token is not configured")
	}
	if maxAge <= 0 {
		maxAge = DefaultInitDataMaxAge
	}
	return &InitDataVerifier{
		secret: deriveSecret(botToken),
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Verify validates raw and returns its fields. When telegramID is non-nil it
// must equal the id of the embedded user.
func (v *InitDataVerifier) Verify(raw string, telegramID *int64) (*InitData, error) {
	fields, err := parseInitData(raw)
	if err != nil {
		return nil, err
	}

	var provided string
	rest := make([]InitDataField, 0, len(fields))
	for _, f := range fields {
		if f.Key == "hash" {
			provided = f.Value
			continue
		}
		rest = append(rest, f)
	}
	if provided == "" {
		return nil, ErrMissingSignature
	}

	// Stale payloads are rejected whatever their hash says.
	if authDate, ok := lookup(rest, "auth_date"); ok {
		sec, err := strconv.ParseInt(authDate, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: auth_date %q", ErrInvalidPayload, authDate)
		}
		age := v.now().Sub(time.Unix(sec, 0))
		if age < 0 || age > v.maxAge {
			return nil, ErrPayloadExpired
		}
	}

	expected := signCheckString(v.secret, CheckString(rest))
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return nil, ErrSignatureMismatch
	}

	data := &InitData{Fields: rest}
	if rawUser, ok := lookup(rest, "user"); ok {
		var u TelegramUser
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			return nil, ErrInvalidEmbeddedIdentity
		}
		if telegramID != nil && *telegramID != u.ID {
			return nil, ErrIdentityMismatch
		}
		data.user = &u
	}

	return data, nil
}

// CheckString builds the newline-joined, key-sorted "key=value" message that
// Telegram signs.
func CheckString(fields []InitDataField) string {
	sorted := make([]InitDataField, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	lines := make([]string, len(sorted))
	for i, f := range sorted {
		lines[i] = f.Key + "=" + f.Value
	}
	return strings.Join(lines, "\n")
}

// SignInitData returns the hash Telegram would attach to fields. Used by
// tests and local tooling to mint payloads.
func SignInitData(botToken string, fields []InitDataField) string {
	return signCheckString(deriveSecret(botToken), CheckString(fields))
}

func deriveSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func signCheckString(secret []byte, checkString string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseInitData(raw string) ([]InitDataField, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	var fields []InitDataField
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: pair %q has no '='", ErrInvalidPayload, part)
		}
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			return nil, fmt.Errorf("%w: bad key %q", ErrInvalidPayload, k)
		}
		value, err := url.QueryUnescape(val)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value for %q", ErrInvalidPayload, key)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidPayload, key)
		}
		seen[key] = true
		fields = append(fields, InitDataField{Key: key, Value: value})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrInvalidPayload)
	}
	return fields, nil
}

func lookup(fields []InitDataField, key string) (string, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}
