package db

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/atrium-app/atrium/domain"
	"github.com/google/uuid"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewStoreRepo(dbConn)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testAction(t *testing.T, repo *Repository, endpoint string, createdAt time.Time) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	action := &domain.OfflineAction{
		ID:        id,
		Kind:      "create",
		Payload:   json.RawMessage(`{"title":"Sunlit Loft"}`),
		Endpoint:  endpoint,
		CreatedAt: createdAt,
	}

	err = repo.InsertAction(action)
	if err != nil {
		t.Fatalf("inserting action: %v", err)
	}
	return id
}

func testNotification(t *testing.T, repo *Repository, status domain.DeliveryStatus, createdAt time.Time) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		t.Fatalf("creating uuid: %v", err)
	}

	notification := &domain.Notification{
		ID:        id,
		Subject:   "New offer received",
		Body:      "An agent responded to your listing",
		Channel:   "offers",
		Status:    status,
		Priority:  domain.PriorityNormal,
		CreatedAt: createdAt,
	}

	err = repo.UpsertNotification(notification)
	if err != nil {
		t.Fatalf("upserting notification: %v", err)
	}
	return id
}
