package registry

import (
	"database/sql"
	"time"
)

// DBPair is the slice of db.DBPair the repository needs.
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// EntityRecord is one persisted entity registration.
type EntityRecord struct {
	UniqueID  string
	EntityID  string
	Kind      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists entity registrations so entity IDs stay stable across
// restarts even when the controller renames things.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new registry Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Upsert registers an entity, or refreshes its display name if it already
// exists. The stored entity_id is never rewritten by an upsert: renames on
// the controller must not change addressing.
func (r *Repository) Upsert(record EntityRecord) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.writer.Exec(`
		INSERT INTO entities (unique_id, entity_id, kind, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at
	`, record.UniqueID, record.EntityID, record.Kind, record.Name, now, now)
	return err
}

// Get retrieves a registration by unique ID. Returns nil, nil if not found.
func (r *Repository) Get(uniqueID string) (*EntityRecord, error) {
	row := r.reader.QueryRow(`
		SELECT unique_id, entity_id, kind, name, created_at, updated_at
		FROM entities
		WHERE unique_id = ?
	`, uniqueID)

	record, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// List retrieves all registrations, ordered by entity ID.
func (r *Repository) List() ([]EntityRecord, error) {
	rows, err := r.reader.Query(`
		SELECT unique_id, entity_id, kind, name, created_at, updated_at
		FROM entities
		ORDER BY entity_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []EntityRecord{}
	for rows.Next() {
		record, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Delete removes a registration.
func (r *Repository) Delete(uniqueID string) error {
	_, err := r.writer.Exec(`DELETE FROM entities WHERE unique_id = ?`, uniqueID)
	return err
}

// RenameUniqueID rewrites a registration's unique ID in place, keeping the
// entity ID and timestamps. Used by the legacy ID migration.
func (r *Repository) RenameUniqueID(oldID, newID string) error {
	_, err := r.writer.Exec(`UPDATE entities SET unique_id = ? WHERE unique_id = ?`, newID, oldID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*EntityRecord, error) {
	var record EntityRecord
	var createdAt, updatedAt string
	err := row.Scan(&record.UniqueID, &record.EntityID, &record.Kind, &record.Name, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		record.CreatedAt = parsed
	}
	if parsed, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		record.UpdatedAt = parsed
	}
	return &record, nil
}
