package mediasource

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBPair is the slice of db.DBPair the repository needs.
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Item is one entry in the media library.
type Item struct {
	ItemID    string    `json:"item_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists media library items.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a new media library Repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{reader: dbPair.Reader(), writer: dbPair.Writer()}
}

// Insert adds a library item and returns it with its generated ID.
func (r *Repository) Insert(name, url, mimeType string) (*Item, error) {
	itemID := uuid.New().String()
	if mimeType == "" {
		mimeType = "audio/mpeg"
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)

	_, err := r.writer.Exec(`
		INSERT INTO media_items (item_id, name, url, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, itemID, name, url, mimeType, createdAt)
	if err != nil {
		return nil, err
	}
	return r.Get(itemID)
}

// Get retrieves an item by ID. Returns nil, nil if not found.
func (r *Repository) Get(itemID string) (*Item, error) {
	row := r.reader.QueryRow(`
		SELECT item_id, name, url, mime_type, created_at
		FROM media_items
		WHERE item_id = ?
	`, itemID)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// List retrieves all items, newest first.
func (r *Repository) List() ([]Item, error) {
	rows, err := r.reader.Query(`
		SELECT item_id, name, url, mime_type, created_at
		FROM media_items
		ORDER BY created_at DESC, item_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Delete removes an item. Returns whether a row was deleted.
func (r *Repository) Delete(itemID string) (bool, error) {
	result, err := r.writer.Exec(`DELETE FROM media_items WHERE item_id = ?`, itemID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var createdAt string
	if err := row.Scan(&item.ItemID, &item.Name, &item.URL, &item.MimeType, &createdAt); err != nil {
		return nil, err
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		item.CreatedAt = parsed
	}
	return &item, nil
}
