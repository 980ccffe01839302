package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cat-game-backend/models"
	"cat-game-backend/utils"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const referralCodeAttempts = 5

// AccountInput is the identity extracted from verified init data.
type AccountInput struct {
	Username   string
	FirstName  string
	LastName   string
	TelegramID *int64
	PhotoURL   string
}

type LoginResult struct {
	User    *models.User
	Profile *models.Profile
	View    *ProfileView
	Tokens  *TokenPair
}

type ProfileStats struct {
	FailuresCompleted int64 `json:"failures_completed"`
	QuizzesCompleted  int64 `json:"quizzes_completed"`
	TasksCompleted    int64 `json:"tasks_completed"`
}

// ProfileView is what /auth/me returns.
type ProfileView struct {
	Username       string       `json:"username"`
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Balance        int64        `json:"balance"`
	ReferralCode   string       `json:"referral_code"`
	ReferredByCode *string      `json:"referred_by_code"`
	ReferralsCount int64        `json:"referrals_count"`
	TelegramID     *int64       `json:"telegram_id,omitempty"`
	PhotoURL       string       `json:"photo_url"`
	LegalAccepted  bool         `json:"legal_accepted"`
	Stats          ProfileStats `json:"stats"`
}

type AccountService struct {
	DB       *gorm.DB
	Verifier *utils.InitDataVerifier
	Tokens   *TokenService
	Legal    LegalChecker
}

func NewAccountService(db *gorm.DB, verifier *utils.InitDataVerifier, tokens *TokenService, legal LegalChecker) *AccountService {
	return &AccountService{DB: db, Verifier: verifier, Tokens: tokens, Legal: legal}
}

// NormalizeUsername trims and case-folds a username for storage and lookup.
func NormalizeUsername(raw string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(raw))
}

// LoginWithTelegram verifies init data, upserts the account and issues tokens.
func (s *AccountService) LoginWithTelegram(ctx context.Context, initData string, telegramID *int64) (*LoginResult, error) {
	data, err := s.Verifier.Verify(initData, telegramID)
	if err != nil {
		return nil, err
	}

	tg := data.User()
	if tg == nil || tg.ID == 0 {
		return nil, Validation("init data carries no telegram user")
	}

	username := tg.Username
	if strings.TrimSpace(username) == "" {
		username = fmt.Sprintf("tg_%d", tg.ID)
	}
	id := tg.ID

	user, profile, err := s.Upsert(ctx, AccountInput{
		Username:   username,
		FirstName:  tg.FirstName,
		LastName:   tg.LastName,
		TelegramID: &id,
		PhotoURL:   tg.PhotoURL,
	})
	if err != nil {
		return nil, err
	}
	if profile.IsBanned && !user.IsStaff {
		return nil, ErrBanned
	}

	tokens, err := s.Tokens.IssuePair(profile.ID, user.ID, user.IsStaff)
	if err != nil {
		return nil, err
	}

	view, err := s.view(s.DB.WithContext(ctx), profile, user)
	if err != nil {
		return nil, err
	}

	log.Printf("🔑 [AUTH] telegram login user=%s profile=%s", user.Username, profile.ID)
	return &LoginResult{User: user, Profile: profile, View: view, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.Tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	profile, user, err := s.LoadIdentity(ctx, claims.Subject)
	if errors.Is(err, ErrProfileNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	if profile.IsBanned && !user.IsStaff {
		return "", ErrBanned
	}
	claims.Staff = user.IsStaff
	return s.Tokens.IssueAccess(claims)
}

// Upsert creates or refreshes the User and Profile for in. Concurrent first
// logins for one username converge on a single row through the unique index.
func (s *AccountService) Upsert(ctx context.Context, in AccountInput) (*models.User, *models.Profile, error) {
	username := NormalizeUsername(in.Username)
	if username == "" {
		return nil, nil, Validation("username is required")
	}
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)

	db := s.DB.WithContext(ctx)

	user := models.User{Username: username, FirstName: firstName, LastName: lastName, CredentialLess: true}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoNothing: true,
	}).Create(&user).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	// Telegram is the source of truth for names.
	if user.FirstName != firstName || user.LastName != lastName || !user.CredentialLess {
		updates := map[string]any{"first_name": firstName, "last_name": lastName, "credential_less": true}
		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to refresh user: %w", err)
		}
		user.FirstName, user.LastName, user.CredentialLess = firstName, lastName, true
	}

	profile, err := s.ensureProfile(db, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if changes := profileDiff(profile, in); len(changes) > 0 {
		changes["updated_at"] = time.Now()
		if err := db.Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(changes).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to update profile: %w", err)
		}
		if in.TelegramID != nil {
			id := *in.TelegramID
			profile.TelegramID = &id
		}
		if in.PhotoURL != "" {
			profile.PhotoURL = in.PhotoURL
		}
	}

	return &user, profile, nil
}

// profileDiff returns only the supplied fields that differ from what is stored.
func profileDiff(p *models.Profile, in AccountInput) map[string]any {
	changes := map[string]any{}
	if in.TelegramID != nil && (p.TelegramID == nil || *p.TelegramID != *in.TelegramID) {
		changes["telegram_id"] = *in.TelegramID
	}
	if in.PhotoURL != "" && in.PhotoURL != p.PhotoURL {
		changes["photo_url"] = in.PhotoURL
	}
	return changes
}

// ensureProfile is get-or-create on profiles.user_id. A referral code
// collision retries with a fresh code.
func (s *AccountService) ensureProfile(db *gorm.DB, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	for attempt := 1; ; attempt++ {
		candidate := models.Profile{UserID: userID, ReferralCode: NewReferralCode()}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&candidate).Error
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == referralCodeAttempts {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
	}

	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &profile, nil
}

// NewReferralCode returns an 8-character uppercase code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// LoadIdentity fetches the profile and its user.
func (s *AccountService) LoadIdentity(ctx context.Context, profileID string) (*models.Profile, *models.User, error) {
	db := s.DB.WithContext(ctx)

	var profile models.Profile
	if err := db.Where("id = ?", profileID).First(&profile).Error; err != nil {
		return nil, nil, notFoundAs(err, ErrProfileNotFound)
	}
	var user models.User
	if err := db.Where("id = ?", profile.UserID).First(&user).Error; err != nil {
		return nil, nil, notFoundAs(err, ErrProfileNotFound)
	}
	return &profile, &user, nil
}

// IsBanned reports whether the profile is blocked from the game. Staff are never blocked.
func (s *AccountService) IsBanned(ctx context.Context, profileID string) (bool, error) {
	var row struct {
		IsBanned bool
		IsStaff  bool
	}
	err := s.DB.WithContext(ctx).
		Table("profiles").
		Select("profiles.is_banned, users.is_staff").
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("profiles.id = ?", profileID).
		Take(&row).Error
	if err != nil {
		return false, notFoundAs(err, ErrProfileNotFound)
	}
	return row.IsBanned && !row.IsStaff, nil
}

func (s *AccountService) ProfileView(ctx context.Context, profileID string) (*ProfileView, error) {
	profile, user, err := s.LoadIdentity(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.view(s.DB.WithContext(ctx), profile, user)
}

func (s *AccountService) view(db *gorm.DB, profile *models.Profile, user *models.User) (*ProfileView, error) {
	view := &ProfileView{
		Username:      user.Username,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Balance:       profile.Balance,
		ReferralCode:  profile.ReferralCode,
		TelegramID:    profile.TelegramID,
		PhotoURL:      profile.PhotoURL,
		LegalAccepted: profile.LegalAccepted,
	}

	if profile.ReferredByID != nil {
		var code string
		if err := db.Model(&models.Profile{}).Select("referral_code").
			Where("id = ?", *profile.ReferredByID).Scan(&code).Error; err != nil {
			return nil, err
		}
		view.ReferredByCode = &code
	}

	counts := []struct {
		model any
		where string
		dest  *int64
	}{
		{&models.Profile{}, "referred_by_id = ?", &view.ReferralsCount},
		{&models.ScoreEntry{}, "profile_id = ?", &view.Stats.FailuresCompleted},
		{&models.QuizAttempt{}, "profile_id = ?", &view.Stats.QuizzesCompleted},
		{&models.TaskCompletion{}, "profile_id = ? AND is_completed = true", &view.Stats.TasksCompleted},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, profile.ID).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	return view, nil
}

// CheckLegal asks the legal service about the profile's Telegram account and
// only then stores the acceptance.
func (s *AccountService) CheckLegal(ctx context.Context, profileID string) (bool, error) {
	profile, _, err := s.LoadIdentity(ctx, profileID)
	if err != nil {
		return false, err
	}
	if profile.LegalAccepted {
		return true, nil
	}
	if profile.TelegramID == nil {
		return false, Validation("profile has no telegram id")
	}

	accepted, err := s.Legal.Check(ctx, *profile.TelegramID)
	if err != nil {
		return false, err
	}
	if !accepted {
		return false, nil
	}

	if err := s.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Update("legal_accepted", true).Error; err != nil {
		return false, err
	}
	log.Printf("✅ [LEGAL] profile=%s accepted", profile.ID)
	return true, nil
}
