package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cat-game-backend/config"
	"cat-game-backend/models"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return db, mock
}

var eventColumns = []string{"id", "kind", "payload", "attempts"}

func TestDeliverPending(t *testing.T) {
	var received atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		received.Store(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db, mock := newMockDB(t)
	d := NewFailureWebhookDispatcher(db, config.WebhookConfig{
		CreateURL:    srv.URL,
		CreateSecret: "create-secret",
		Timeout:      time.Second,
	})

	mock.ExpectQuery(`SELECT \* FROM "failure_webhook_events" WHERE delivered_at IS NULL`).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("ev1", string(models.WebhookFailureCreated), []byte(`{"name":"Outage","reward":500}`), 0).
			AddRow("ev2", string(models.WebhookFailureDeleted), []byte(`{"name":"Old"}`), 0))
	mock.ExpectExec(`UPDATE "failure_webhook_events" SET "attempts"=attempts \+ 1,"delivered_at"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "failure_webhook_events" SET "skipped_at"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	delivered, err := d.DeliverPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered != 1 {
		t.Errorf("expected 1 delivery, got %d", delivered)
	}

	body, _ := received.Load().(map[string]any)
	if body["secret"] != "create-secret" || body["name"] != "Outage" {
		t.Errorf("unexpected webhook body: %v", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDeliverPending_RecordsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	db, mock := newMockDB(t)
	d := NewFailureWebhookDispatcher(db, config.WebhookConfig{CreateURL: srv.URL, Timeout: time.Second})

	mock.ExpectQuery(`SELECT \* FROM "failure_webhook_events"`).
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("ev1", string(models.WebhookFailureCreated), []byte(`{"name":"Outage"}`), 2))
	mock.ExpectExec(`UPDATE "failure_webhook_events" SET "attempts"=attempts \+ 1,"last_error"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	delivered, err := d.DeliverPending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered != 0 {
		t.Errorf("expected no deliveries, got %d", delivered)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
