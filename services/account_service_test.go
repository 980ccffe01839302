package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"cat-game-backend/models"

	"github.com/DATA-DOG/go-sqlmock"
)

type fakeLegal struct {
	accepted bool
	calls    int
}

func (f *fakeLegal) Check(_ context.Context, _ int64) (bool, error) {
	f.calls++
	return f.accepted, nil
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Alice ", "alice"},
		{"BOB", "bob"},
		{"", ""},
		{"tg_42", "tg_42"},
	}
	for _, tt := range tests {
		if got := NormalizeUsername(tt.in); got != tt.want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewReferralCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := NewReferralCode()
		if !pattern.MatchString(code) {
			t.Fatalf("unexpected code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("codes repeat too often: %d unique of 50", len(seen))
	}
}

func TestProfileDiff(t *testing.T) {
	id := int64(42)
	other := int64(7)

	tests := []struct {
		name    string
		profile models.Profile
		in      AccountInput
		want    []string
	}{
		{"nothing supplied", models.Profile{TelegramID: &id, PhotoURL: "a"}, AccountInput{}, nil},
		{"same values", models.Profile{TelegramID: &id, PhotoURL: "a"}, AccountInput{TelegramID: &id, PhotoURL: "a"}, nil},
		{"new telegram id", models.Profile{}, AccountInput{TelegramID: &id}, []string{"telegram_id"}},
		{"changed telegram id", models.Profile{TelegramID: &other}, AccountInput{TelegramID: &id}, []string{"telegram_id"}},
		{"empty photo keeps stored", models.Profile{PhotoURL: "a"}, AccountInput{PhotoURL: ""}, nil},
		{"both", models.Profile{PhotoURL: "a"}, AccountInput{TelegramID: &id, PhotoURL: "b"}, []string{"telegram_id", "photo_url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := profileDiff(&tt.profile, tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want keys %v", got, tt.want)
			}
			for _, key := range tt.want {
				if _, ok := got[key]; !ok {
					t.Errorf("missing key %q in %v", key, got)
				}
			}
		})
	}
}

func TestIsBanned(t *testing.T) {
	tests := []struct {
		name     string
		banned   bool
		staff    bool
		expected bool
	}{
		{"regular player", false, false, false},
		{"banned player", true, false, true},
		{"banned staff", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := &AccountService{DB: db}

			mock.ExpectQuery(`SELECT profiles.is_banned, users.is_staff FROM "profiles" JOIN users`).
				WillReturnRows(sqlmock.NewRows([]string{"is_banned", "is_staff"}).AddRow(tt.banned, tt.staff))

			got, err := svc.IsBanned(context.Background(), "p-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("IsBanned = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsBannedUnknownProfile(t *testing.T) {
	db, mock := newMockDB(t)
	svc := &AccountService{DB: db}

	mock.ExpectQuery(`SELECT profiles.is_banned, users.is_staff FROM "profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"is_banned", "is_staff"}))

	if _, err := svc.IsBanned(context.Background(), "ghost"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func expectIdentity(mock sqlmock.Sqlmock, legalAccepted bool, telegramID any) {
	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "legal_accepted", "telegram_id"}).
			AddRow("p-1", "u-1", legalAccepted, telegramID))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow("u-1", "alice"))
}

func TestCheckLegal(t *testing.T) {
	t.Run("already accepted skips the remote call", func(t *testing.T) {
		db, mock := newMockDB(t)
		legal := &fakeLegal{}
		svc := &AccountService{DB: db, Legal: legal}
		expectIdentity(mock, true, int64(42))

		ok, err := svc.CheckLegal(context.Background(), "p-1")
		if err != nil || !ok {
			t.Fatalf("got %v, %v", ok, err)
		}
		if legal.calls != 0 {
			t.Errorf("legal service called %d times", legal.calls)
		}
	})

	t.Run("rejected is not stored", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := &AccountService{DB: db, Legal: &fakeLegal{accepted: false}}
		expectIdentity(mock, false, int64(42))

		ok, err := svc.CheckLegal(context.Background(), "p-1")
		if err != nil || ok {
			t.Fatalf("got %v, %v", ok, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("accepted is stored", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := &AccountService{DB: db, Legal: &fakeLegal{accepted: true}}
		expectIdentity(mock, false, int64(42))
		mock.ExpectExec(`UPDATE "profiles" SET "legal_accepted"=\$1`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := svc.CheckLegal(context.Background(), "p-1")
		if err != nil || !ok {
			t.Fatalf("got %v, %v", ok, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("no telegram id", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := &AccountService{DB: db, Legal: &fakeLegal{accepted: true}}
		expectIdentity(mock, false, nil)

		_, err := svc.CheckLegal(context.Background(), "p-1")
		var appErr *Error
		if !errors.As(err, &appErr) || appErr.Kind != KindValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestProfileView(t *testing.T) {
	db, mock := newMockDB(t)
	svc := &AccountService{DB: db}
	expectIdentity(mock, true, int64(42))
	for _, table := range []string{"profiles", "score_entries", "quiz_attempts", "task_completions"} {
		mock.ExpectQuery(`SELECT count\(\*\) FROM "` + table + `"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	}

	view, err := svc.ProfileView(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Username != "alice" || !view.LegalAccepted || view.TelegramID == nil || *view.TelegramID != 42 {
		t.Errorf("unexpected view: %+v", view)
	}
	if view.ReferredByCode != nil {
		t.Errorf("expected no referrer, got %q", *view.ReferredByCode)
	}
	if view.ReferralsCount != 2 || view.Stats.TasksCompleted != 2 {
		t.Errorf("unexpected counts: %+v", view)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
