package audit

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DBPair is the slice of db.DBPair the repository needs.
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository handles database operations for audit events. SELECTs go
// through the reader pool, writes through the single-connection writer.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new audit Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// InsertEvent writes a new audit event. Generates the event ID, captures the
// timestamp, and defaults the level to INFO.
func (r *Repository) InsertEvent(input WriteEventInput) (*Event, error) {
	eventID := uuid.New().String()
	timestamp := time.Now().UTC().Format(time.RFC3339)

	level := EventLevelInfo
	if input.Level != nil {
		level = *input.Level
	}

	payload := input.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	_, err = r.writer.Exec(`
		INSERT INTO audit_events (event_id, timestamp, type, level, request_id, player_id, message, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, eventID, timestamp, string(input.Type), string(level), input.RequestID, input.PlayerID, input.Message, string(payloadJSON))
	if err != nil {
		return nil, err
	}

	return r.GetEvent(eventID)
}

// GetEvent retrieves a single event by ID. Returns nil, nil if not found.
func (r *Repository) GetEvent(eventID string) (*Event, error) {
	row := r.reader.QueryRow(`
		SELECT event_id, timestamp, type, level, request_id, player_id, message, payload
		FROM audit_events
		WHERE event_id = ?
	`, eventID)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return event, err
}

// QueryEvents retrieves events matching filters, newest first, with the
// total count for pagination.
func (r *Repository) QueryEvents(filters EventQueryFilters) ([]Event, int, error) {
	whereClause, args := buildWhereClause(filters)

	var total int
	if err := r.reader.QueryRow("SELECT COUNT(*) FROM audit_events "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT event_id, timestamp, type, level, request_id, player_id, message, payload
		FROM audit_events
		` + whereClause + `
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.reader.Query(query, append(args, limit, filters.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// PruneOldEvents deletes events older than retentionDays. Returns the number
// of rows deleted.
func (r *Repository) PruneOldEvents(retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339)

	result, err := r.writer.Exec(`DELETE FROM audit_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func buildWhereClause(filters EventQueryFilters) (string, []any) {
	conditions := []string{}
	args := []any{}

	if filters.Type != nil {
		conditions = append(conditions, "type = ?")
		args = append(args, *filters.Type)
	}
	if filters.Level != nil {
		conditions = append(conditions, "level = ?")
		args = append(args, string(*filters.Level))
	}
	if filters.PlayerID != nil {
		conditions = append(conditions, "player_id = ?")
		args = append(args, *filters.PlayerID)
	}
	if filters.RequestID != nil {
		conditions = append(conditions, "request_id = ?")
		args = append(args, *filters.RequestID)
	}
	if filters.StartDate != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filters.StartDate)
	}
	if filters.EndDate != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *filters.EndDate)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var event Event
	var timestamp, eventType, level, payloadJSON string
	var requestID, playerID sql.NullString

	err := row.Scan(
		&event.EventID,
		&timestamp,
		&eventType,
		&level,
		&requestID,
		&playerID,
		&event.Message,
		&payloadJSON,
	)
	if err != nil {
		return nil, err
	}

	event.Type = EventType(eventType)
	event.Level = EventLevel(level)
	if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
		event.Timestamp = parsed
	}
	if requestID.Valid {
		event.RequestID = &requestID.String
	}
	if playerID.Valid {
		event.PlayerID = &playerID.String
	}
	if err := json.Unmarshal([]byte(payloadJSON), &event.Payload); err != nil {
		event.Payload = map[string]any{}
	}

	return &event, nil
}
