package audit

import (
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/db"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewService(dbPair, 90, log.New(io.Discard, "", 0))
}

func TestService_RecordEvent(t *testing.T) {
	service := setupTestService(t)

	event := service.RecordEvent(WriteEventInput{
		Type:    EventPlayerCommand,
		Message: "command dispatched",
	})
	require.NotNil(t, event)
	assert.Equal(t, EventPlayerCommand, event.Type)

	fetched, err := service.GetEvent(event.EventID)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, fetched.EventID)
}

func TestService_GetEvent_NotFound(t *testing.T) {
	service := setupTestService(t)

	_, err := service.GetEvent("missing")
	require.Error(t, err)
	var notFound *EventNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "missing", notFound.EventID)
}

func TestService_QueryEvents_DefaultLimitAndHasMore(t *testing.T) {
	service := setupTestService(t)

	for i := 0; i < 5; i++ {
		require.NotNil(t, service.RecordEvent(WriteEventInput{
			Type:    EventSystemStartup,
			Message: "M",
		}))
	}

	events, total, hasMore, err := service.QueryEvents(EventQueryFilters{})
	require.NoError(t, err)
	assert.Len(t, events, 5)
	assert.Equal(t, 5, total)
	assert.False(t, hasMore)

	events, total, hasMore, err = service.QueryEvents(EventQueryFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 5, total)
	assert.True(t, hasMore)
}

func TestService_QueryEvents_ClampsLimit(t *testing.T) {
	service := setupTestService(t)

	require.NotNil(t, service.RecordEvent(WriteEventInput{
		Type:    EventSystemStartup,
		Message: "M",
	}))

	events, total, _, err := service.QueryEvents(EventQueryFilters{Limit: MaxQueryLimit + 500})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, total)
}

func TestService_PruneJobRemovesExpiredEvents(t *testing.T) {
	service := setupTestService(t)
	service.pruneInterval = 10 * time.Millisecond

	oldTimestamp := time.Now().UTC().AddDate(0, 0, -120).Format(time.RFC3339)
	_, err := service.repo.writer.Exec(`
		INSERT INTO audit_events (event_id, timestamp, type, level, request_id, player_id, message, payload)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, ?)
	`, "expired", oldTimestamp, string(EventSystemStartup), string(EventLevelInfo), "old", "{}")
	require.NoError(t, err)

	service.StartPruneJob()
	defer service.StopPruneJob()

	require.Eventually(t, func() bool {
		event, err := service.repo.GetEvent("expired")
		return err == nil && event == nil
	}, 2*time.Second, 20*time.Millisecond)

	_, getErr := service.GetEvent("expired")
	var notFound *EventNotFoundError
	assert.True(t, errors.As(getErr, &notFound))
}
