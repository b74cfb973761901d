package audit

import (
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/db"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewRepository(dbPair)
}

func TestRepository_InsertEvent(t *testing.T) {
	repo := setupTestDB(t)

	requestID := "req-123"
	playerID := "amplipi_zone_1"
	input := WriteEventInput{
		Type:      EventPlayerCommand,
		RequestID: &requestID,
		PlayerID:  &playerID,
		Message:   "volume command dispatched",
		Payload: map[string]any{
			"command": "volume",
		},
	}

	event, err := repo.InsertEvent(input)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotEmpty(t, event.EventID)
	require.Equal(t, EventPlayerCommand, event.Type)
	require.Equal(t, EventLevelInfo, event.Level) // default level
	require.NotNil(t, event.RequestID)
	require.Equal(t, "req-123", *event.RequestID)
	require.NotNil(t, event.PlayerID)
	require.Equal(t, "amplipi_zone_1", *event.PlayerID)
	require.Equal(t, "volume command dispatched", event.Message)
	require.Equal(t, "volume", event.Payload["command"])
	require.False(t, event.Timestamp.IsZero())
}

func TestRepository_InsertEvent_WithLevel(t *testing.T) {
	repo := setupTestDB(t)

	level := EventLevelError
	input := WriteEventInput{
		Type:    EventPollFailed,
		Level:   &level,
		Message: "controller did not respond",
	}

	event, err := repo.InsertEvent(input)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, EventLevelError, event.Level)
}

func TestRepository_InsertEvent_NilPayload(t *testing.T) {
	repo := setupTestDB(t)

	input := WriteEventInput{
		Type:    EventSystemStartup,
		Message: "no payload",
	}

	event, err := repo.InsertEvent(input)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotNil(t, event.Payload)
	require.Empty(t, event.Payload)
}

func TestRepository_GetEvent(t *testing.T) {
	repo := setupTestDB(t)

	created, err := repo.InsertEvent(WriteEventInput{
		Type:    EventSystemStartup,
		Message: "test message",
	})
	require.NoError(t, err)

	fetched, err := repo.GetEvent(created.EventID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, created.EventID, fetched.EventID)
	require.Equal(t, EventSystemStartup, fetched.Type)
	require.Equal(t, "test message", fetched.Message)
}

func TestRepository_GetEvent_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	event, err := repo.GetEvent("nonexistent-id")
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestRepository_QueryEvents_NoFilters(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 5; i++ {
		_, err := repo.InsertEvent(WriteEventInput{
			Type:    EventSystemStartup,
			Message: "event message",
		})
		require.NoError(t, err)
	}

	events, total, err := repo.QueryEvents(EventQueryFilters{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	require.Equal(t, 5, total)
}

func TestRepository_QueryEvents_WithTypeFilter(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.InsertEvent(WriteEventInput{Type: EventPlayerCommand, Message: "A1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: EventPlayerCommand, Message: "A2"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: EventMediaItemAdded, Message: "B1"})
	require.NoError(t, err)

	typeFilter := string(EventPlayerCommand)
	events, total, err := repo.QueryEvents(EventQueryFilters{Type: &typeFilter})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 2, total)
	for _, e := range events {
		require.Equal(t, EventPlayerCommand, e.Type)
	}
}

func TestRepository_QueryEvents_WithCorrelationFilters(t *testing.T) {
	repo := setupTestDB(t)

	playerID := "amplipi_stream_1001"
	requestID := "req-abc"
	otherPlayer := "amplipi_zone_0"

	_, err := repo.InsertEvent(WriteEventInput{Type: EventPlayerCommand, PlayerID: &playerID, RequestID: &requestID, Message: "M1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: EventPlayerCommand, PlayerID: &playerID, Message: "M2"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: EventPlayerCommand, PlayerID: &otherPlayer, Message: "M3"})
	require.NoError(t, err)

	events, total, err := repo.QueryEvents(EventQueryFilters{PlayerID: &playerID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 2, total)

	events, total, err = repo.QueryEvents(EventQueryFilters{PlayerID: &playerID, RequestID: &requestID})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, total)
}

func TestRepository_QueryEvents_WithDateFilters(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.InsertEvent(WriteEventInput{Type: EventSystemStartup, Message: "M1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: EventSystemStartup, Message: "M2"})
	require.NoError(t, err)

	startDate := time.Now().UTC().Add(-1 * time.Hour).Format(time.RFC3339)
	endDate := time.Now().UTC().Add(1 * time.Hour).Format(time.RFC3339)

	events, total, err := repo.QueryEvents(EventQueryFilters{StartDate: &startDate, EndDate: &endDate})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 2, total)

	oldStartDate := "2020-01-01T00:00:00Z"
	oldEndDate := "2020-01-02T00:00:00Z"
	events, total, err = repo.QueryEvents(EventQueryFilters{StartDate: &oldStartDate, EndDate: &oldEndDate})
	require.NoError(t, err)
	require.Len(t, events, 0)
	require.Equal(t, 0, total)
}

func TestRepository_QueryEvents_WithPagination(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 10; i++ {
		_, err := repo.InsertEvent(WriteEventInput{Type: EventSystemStartup, Message: "M"})
		require.NoError(t, err)
	}

	events, total, err := repo.QueryEvents(EventQueryFilters{Limit: 3, Offset: 0})
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, 10, total)

	events, total, err = repo.QueryEvents(EventQueryFilters{Limit: 3, Offset: 9})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 10, total)
}

func TestRepository_PruneOldEvents(t *testing.T) {
	repo := setupTestDB(t)

	// A row older than any retention window, written directly so the
	// timestamp is under test control.
	oldTimestamp := time.Now().UTC().AddDate(0, 0, -120).Format(time.RFC3339)
	_, err := repo.writer.Exec(`
		INSERT INTO audit_events (event_id, timestamp, type, level, request_id, player_id, message, payload)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, ?)
	`, "old-event", oldTimestamp, string(EventSystemStartup), string(EventLevelInfo), "old", "{}")
	require.NoError(t, err)

	fresh, err := repo.InsertEvent(WriteEventInput{Type: EventSystemStartup, Message: "fresh"})
	require.NoError(t, err)

	deleted, err := repo.PruneOldEvents(90)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	gone, err := repo.GetEvent("old-event")
	require.NoError(t, err)
	require.Nil(t, gone)

	kept, err := repo.GetEvent(fresh.EventID)
	require.NoError(t, err)
	require.NotNil(t, kept)
}
