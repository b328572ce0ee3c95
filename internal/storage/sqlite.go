package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a document id does not exist in a collection
var ErrNotFound = errors.New("document not found")

// Document is a stored record: an id plus an untyped JSON body. A body that
// is not a JSON object leaves Data nil and sets DecodeErr, so one corrupt row
// does not hide the rest of its collection.
type Document struct {
	ID        string                 `json:"id"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	DecodeErr error                  `json:"-"`
}

func (d *Document) decode(collection, data string) {
	if err := json.Unmarshal([]byte(data), &d.Data); err != nil {
		d.Data = nil
		d.DecodeErr = fmt.Errorf("decode document %s/%s: %w", collection, d.ID, err)
	}
}

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// --- Documents ---

// ListDocuments returns every document of a collection in insertion order
func (s *Store) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data, created_at, updated_at
		FROM documents WHERE collection = ? ORDER BY rowid
	`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var data string
		if err := rows.Scan(&d.ID, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.decode(collection, data)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument returns a document by id, or nil if it does not exist
func (s *Store) GetDocument(ctx context.Context, collection, id string) (*Document, error) {
	var d Document
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, data, created_at, updated_at
		FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&d.ID, &data, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.decode(collection, data)
	return &d, nil
}

// CreateDocument stores data under a new id and returns it
func (s *Store) CreateDocument(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, collection, id, string(body), now, now)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateDocument merges fields into the top level of an existing document.
// A stored body that is not a JSON object is replaced by fields.
func (s *Store) UpdateDocument(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `
		SELECT data FROM documents WHERE collection = ? AND id = ?
	`, collection, id).Scan(&data)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var current map[string]interface{}
	if err := json.Unmarshal([]byte(data), &current); err != nil || current == nil {
		current = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		current[k] = v
	}

	body, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?
	`, string(body), time.Now().UTC(), collection, id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// CountDocuments returns the number of documents in a collection
func (s *Store) CountDocuments(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE collection = ?
	`, collection).Scan(&n)
	return n, err
}

// KeyedDocument is a document whose id is chosen by the caller
type KeyedDocument struct {
	ID   string
	Data map[string]interface{}
}

// ImportDocuments inserts keyed documents into several collections in one
// transaction. Ids already present in their collection are left untouched,
// so importing the same documents again changes nothing. It returns the
// number of new documents per collection.
func (s *Store) ImportDocuments(ctx context.Context, batches map[string][]KeyedDocument) (map[string]int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := make(map[string]int, len(batches))
	for collection, docs := range batches {
		inserted[collection] = 0
		for _, d := range docs {
			if d.ID == "" {
				return nil, fmt.Errorf("document in %s has no id", collection)
			}
			body, err := json.Marshal(d.Data)
			if err != nil {
				return nil, fmt.Errorf("encode document %s/%s: %w", collection, d.ID, err)
			}
			res, err := stmt.ExecContext(ctx, collection, d.ID, string(body), now, now)
			if err != nil {
				return nil, err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return nil, err
			}
			inserted[collection] += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// SeedCollection inserts docs only if the collection is empty, all or
// nothing. It returns the number of inserted documents.
func (s *Store) SeedCollection(ctx context.Context, collection string, docs []map[string]interface{}) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE collection = ?
	`, collection).Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	if err := insertAll(ctx, tx, collection, docs); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func insertAll(ctx context.Context, tx *sql.Tx, collection string, docs []map[string]interface{}) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, uuid.New().String(), string(body), now, now); err != nil {
			return err
		}
	}
	return nil
}
