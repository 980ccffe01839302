package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const testFailureID = "0b8f3c52-5a4e-4d1e-9c39-1f7f2e6a9b10"

var failureColumns = []string{
	"id", "name", "start_time", "end_time", "attempt_cost", "duration_seconds",
	"shop_enabled", "max_bonuses_per_run", "bonus_prices",
}

func newFailureService(t *testing.T, now time.Time) (*FailureService, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	svc := NewFailureService(db, NewLedger(db))
	svc.now = func() time.Time { return now }
	return svc, mock
}

func expectEligibility(mock sqlmock.Sqlmock, bans, scores int) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM "failure_bans"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(bans))
	if bans > 0 {
		return
	}
	mock.ExpectQuery(`SELECT count\(\*\) FROM "score_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(scores))
}

func expectRunningRuns(mock sqlmock.Sqlmock, n int) {
	mock.ExpectQuery(`SELECT count\(\*\) FROM "failure_runs" WHERE profile_id = \$1 AND failure_id = \$2 AND completed_at IS NULL AND created_at > \$3`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

func TestFailureStart(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	tests := []struct {
		name    string
		start   time.Time
		bans    int
		scores  int
		wantErr error
	}{
		{name: "banned", start: start, bans: 1, wantErr: ErrBannedFromEvent},
		{name: "already scored", start: start, scores: 1, wantErr: ErrAlreadyScored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newFailureService(t, now)

			mock.ExpectBegin()
			expectLockedProfile(mock, "p1")
			mock.ExpectQuery(`SELECT \* FROM "failures" WHERE id = \$1`).
				WillReturnRows(sqlmock.NewRows(failureColumns).
					AddRow("f1", "Outage", tt.start, end, 50, 60, false, 0, nil))
			expectEligibility(mock, tt.bans, tt.scores)
			mock.ExpectRollback()

			if _, err := svc.Start(context.Background(), "p1", testFailureID); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestFailureStart_NotActive(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, mock := newFailureService(t, now)

	mock.ExpectBegin()
	expectLockedProfile(mock, "p1")
	mock.ExpectQuery(`SELECT \* FROM "failures"`).
		WillReturnRows(sqlmock.NewRows(failureColumns).
			AddRow("f1", "Tomorrow", now.Add(24*time.Hour), nil, 0, 60, false, 0, nil))
	mock.ExpectRollback()

	_, err := svc.Start(context.Background(), "p1", testFailureID)
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFailureStart_ChargesAttempt(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, mock := newFailureService(t, now)

	mock.ExpectBegin()
	expectLockedProfile(mock, "p1")
	mock.ExpectQuery(`SELECT \* FROM "failures"`).
		WillReturnRows(sqlmock.NewRows(failureColumns).
			AddRow("f1", "Outage", now.Add(-time.Minute), nil, 50, 90, true, 2, []byte(`{"x2":10}`)))
	expectEligibility(mock, 0, 0)
	expectRunningRuns(mock, 0)
	expectLockedBalance(mock, "p1", 80)
	expectLedgerWrite(mock)
	mock.ExpectQuery(`INSERT INTO "failure_runs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("run-1"))
	mock.ExpectCommit()

	run, err := svc.Start(context.Background(), "p1", testFailureID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.RunID != "run-1" || run.Balance != 30 || run.DurationSeconds != 90 || run.BonusPrices["x2"] != 10 {
		t.Errorf("unexpected run: %+v", run)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFailureStart_RunInProgress(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, mock := newFailureService(t, now)

	mock.ExpectBegin()
	expectLockedProfile(mock, "p1")
	mock.ExpectQuery(`SELECT \* FROM "failures"`).
		WillReturnRows(sqlmock.NewRows(failureColumns).
			AddRow("f1", "Outage", now.Add(-time.Minute), nil, 50, 90, false, 0, nil))
	expectEligibility(mock, 0, 0)
	expectRunningRuns(mock, 1)
	mock.ExpectRollback()

	if _, err := svc.Start(context.Background(), "p1", testFailureID); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFailureComplete_DuplicateScore(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc, mock := newFailureService(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "failures"`).
		WillReturnRows(sqlmock.NewRows(failureColumns).
			AddRow("f1", "Outage", now.Add(-time.Minute), nil, 0, 60, false, 0, nil))
	expectEligibility(mock, 0, 0)
	mock.ExpectQuery(`SELECT \* FROM "failure_runs" .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "failure_id"}).AddRow("run-1", "p1", "f1"))
	mock.ExpectQuery(`INSERT INTO "score_entries"`).WillReturnError(uniqueViolation)
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), "p1", ScoreInput{FailureID: testFailureID, Points: 120})
	if !errors.Is(err, ErrAlreadyScored) {
		t.Fatalf("expected ErrAlreadyScored, got %v", err)
	}
}

func TestFailureComplete_NegativePoints(t *testing.T) {
	svc, _ := newFailureService(t, time.Now())
	_, err := svc.Complete(context.Background(), "p1", ScoreInput{FailureID: testFailureID, Points: -1})
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFailureBuyBonus_UnknownType(t *testing.T) {
	svc, _ := newFailureService(t, time.Now())
	_, err := svc.BuyBonus(context.Background(), "p1", "f1", "x3")
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFailureScores(t *testing.T) {
	svc, mock := newFailureService(t, time.Now())
	newer := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	older := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "score_entries" WHERE profile_id = \$1 ORDER BY earned_at DESC,id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "failure_id", "points", "duration_seconds", "earned_at"}).
			AddRow("s2", "p1", "f2", 900, 45, newer).
			AddRow("s1", "p1", "f1", 300, 60, older))
	mock.ExpectQuery(`SELECT \* FROM "failures" WHERE "failures"."id" IN`).
		WillReturnRows(sqlmock.NewRows(failureColumns).
			AddRow("f2", "Datacenter fire", nil, nil, 0, 60, false, 0, nil))

	scores, err := svc.Scores(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d", len(scores))
	}
	if scores[0].Points != 900 || scores[0].FailureName == nil || *scores[0].FailureName != "Datacenter fire" {
		t.Errorf("unexpected first score: %+v", scores[0])
	}
	if !scores[0].EarnedAt.Equal(newer) {
		t.Errorf("expected newest first, got %v", scores[0].EarnedAt)
	}
	if scores[1].FailureID != nil || scores[1].FailureName != nil {
		t.Errorf("missing event should leave failure fields empty: %+v", scores[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
