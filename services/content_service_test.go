package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const testButtonID = "5d2c8e1a-7f0b-4c3e-9a61-2b4d6f8e0c13"

var buttonColumns = []string{"id", "title", "link", "reward_amount", "max_claims", "is_active"}

func TestClaimAdButton(t *testing.T) {
	tests := []struct {
		name        string
		used        int
		wantErr     bool
		wantBalance int64
		wantLeft    int
	}{
		{name: "first claim", used: 0, wantBalance: 130, wantLeft: 1},
		{name: "last claim", used: 1, wantBalance: 130, wantLeft: 0},
		{name: "exhausted", used: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := NewContentService(db, NewLedger(db))

			mock.ExpectBegin()
			expectLockedProfile(mock, "p1")
			mock.ExpectQuery(`SELECT \* FROM "advertisement_buttons" WHERE id = \$1 AND is_active = \$2`).
				WillReturnRows(sqlmock.NewRows(buttonColumns).
					AddRow(testButtonID, "Sponsor", "https://t.me/sponsor", 30, 2, true))
			mock.ExpectQuery(`SELECT count\(\*\) FROM "advertisement_claims"`).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.used))
			if tt.wantErr {
				mock.ExpectRollback()
			} else {
				mock.ExpectQuery(`INSERT INTO "advertisement_claims"`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("claim-1"))
				expectLockedBalance(mock, "p1", 100)
				expectLedgerWrite(mock)
				mock.ExpectCommit()
			}

			res, err := svc.ClaimAdButton(context.Background(), "p1", testButtonID)
			if tt.wantErr {
				var appErr *Error
				if !errors.As(err, &appErr) || appErr.Kind != KindConflict {
					t.Fatalf("expected conflict, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Balance != tt.wantBalance || res.AvailableClaims != tt.wantLeft {
				t.Errorf("got %+v", res)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestClaimAdButton_BadID(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewContentService(db, NewLedger(db))

	_, err := svc.ClaimAdButton(context.Background(), "p1", "not-a-uuid")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected queries: %v", err)
	}
}

func TestClaimAdButton_Inactive(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewContentService(db, NewLedger(db))

	mock.ExpectBegin()
	expectLockedProfile(mock, "p1")
	mock.ExpectQuery(`SELECT \* FROM "advertisement_buttons"`).
		WillReturnRows(sqlmock.NewRows(buttonColumns))
	mock.ExpectRollback()

	_, err := svc.ClaimAdButton(context.Background(), "p1", testButtonID)
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
