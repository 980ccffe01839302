package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

const testTaskID = "9a7e4c21-3b5d-4f60-8e12-6c0a9d3b7f54"

func TestTaskToggle(t *testing.T) {
	rewardedAt := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		isCompleted  bool
		rewardedAt   any
		request      bool
		wantUpdate   bool
		wantRewarded int64
		wantBalance  int64
	}{
		{name: "first completion pays", isCompleted: false, rewardedAt: nil, request: true, wantUpdate: true, wantRewarded: 40, wantBalance: 140},
		{name: "repeated complete changes nothing", isCompleted: true, rewardedAt: rewardedAt, request: true, wantUpdate: false, wantBalance: 100},
		{name: "unmark keeps coins", isCompleted: true, rewardedAt: rewardedAt, request: false, wantUpdate: true, wantBalance: 100},
		{name: "repeated unmark changes nothing", isCompleted: false, rewardedAt: rewardedAt, request: false, wantUpdate: false, wantBalance: 100},
		{name: "re-mark pays nothing", isCompleted: false, rewardedAt: rewardedAt, request: true, wantUpdate: true, wantBalance: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := NewTaskService(db, NewLedger(db))

			mock.ExpectBegin()
			mock.ExpectQuery(`SELECT \* FROM "tasks" WHERE id = \$1 .*FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name", "reward", "max_users"}).
					AddRow(testTaskID, "Join channel", 40, nil))
			mock.ExpectQuery(`INSERT INTO "task_completions" .*ON CONFLICT DO NOTHING`).
				WillReturnRows(sqlmock.NewRows([]string{"id"}))
			mock.ExpectQuery(`SELECT \* FROM "task_completions" WHERE profile_id = \$1 AND task_id = \$2 .*FOR UPDATE`).
				WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "task_id", "is_completed", "rewarded_at"}).
					AddRow("c-1", "p1", testTaskID, tt.isCompleted, tt.rewardedAt))
			if tt.wantUpdate {
				mock.ExpectExec(`UPDATE "task_completions" SET`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			}
			if tt.wantRewarded > 0 {
				expectLockedBalance(mock, "p1", 100)
				expectLedgerWrite(mock)
			} else {
				mock.ExpectQuery(`SELECT .?balance.? FROM "profiles" WHERE id = \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100))
			}
			mock.ExpectCommit()

			res, err := svc.Toggle(context.Background(), "p1", testTaskID, tt.request)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.TaskID != testTaskID || res.IsCompleted != tt.request || res.Rewarded != tt.wantRewarded || res.Balance != tt.wantBalance {
				t.Errorf("got %+v", res)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestTaskToggle_LimitReached(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewTaskService(db, NewLedger(db))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "reward", "max_users"}).
			AddRow(testTaskID, "Early birds", 40, 2))
	mock.ExpectQuery(`INSERT INTO "task_completions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c-1"))
	mock.ExpectQuery(`SELECT \* FROM "task_completions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "profile_id", "task_id", "is_completed", "rewarded_at"}).
			AddRow("c-1", "p1", testTaskID, false, nil))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "task_completions" WHERE task_id = \$1 AND rewarded_at IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	if _, err := svc.Toggle(context.Background(), "p1", testTaskID, true); !errors.Is(err, ErrTaskLimitReached) {
		t.Fatalf("expected ErrTaskLimitReached, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestTaskToggle_BadID(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewTaskService(db, NewLedger(db))

	_, err := svc.Toggle(context.Background(), "p1", "42", true)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestToggleResultJSON(t *testing.T) {
	raw, err := json.Marshal(ToggleResult{TaskView: TaskView{TaskID: testTaskID, IsCompleted: true}, Rewarded: 50, Balance: 150})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out["task_id"] != testTaskID || out["is_completed"] != true || out["rewarded"] != float64(50) {
		t.Errorf("unexpected body: %s", raw)
	}
	if _, ok := out["id"]; ok {
		t.Errorf("unexpected id key: %s", raw)
	}
}
