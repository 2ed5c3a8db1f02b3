// Package storage persists annotated documents in a SQLite database.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// Documents are stored in their serialized record form together with a
// BLAKE3 hash of the raw text. The hash is verified on every load so a
// corrupted row is reported instead of silently decoded.
package storage

import (
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/strata-nlp/strata/core/errors"
	"github.com/strata-nlp/strata/core/record"
	"github.com/strata-nlp/strata/core/text"
	"github.com/strata-nlp/strata/internal/logging"
)

// DriverName returns the SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns "purego" for modernc.org/sqlite, "cgo" for mattn/go-sqlite3.
func DriverType() string {
	return driverType
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	text_hash   TEXT NOT NULL,
	record_json TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_name ON documents(name);
`

// DocumentInfo describes a stored document without decoding its layers.
type DocumentInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TextHash  string `json:"text_hash"`
	CreatedAt string `json:"created_at"`
}

// Store is a document store backed by a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a document store at path.
// Use ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewIO("open database", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize schema", path, err)
	}
	logging.Debug("storage opened", "path", path, "driver", driverName)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// hashText returns the hex BLAKE3 hash of the raw text.
func hashText(raw string) string {
	sum := blake3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Insert stores a document under the given name and returns its generated id.
// The name must be unique within the store.
func (s *Store) Insert(name string, t *text.Text) (string, error) {
	if name == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "document name must not be empty")
	}
	data, err := record.TextToJSON(t)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		`INSERT INTO documents (id, name, text_hash, record_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, hashText(t.Raw()), string(data), now,
	)
	if err != nil {
		return "", errors.NewIO("insert document", name, err)
	}
	logging.Debug("document stored", "id", id, "name", name)
	return id, nil
}

// Update replaces the stored record of an existing document, keeping its id.
func (s *Store) Update(id string, t *text.Text) error {
	data, err := record.TextToJSON(t)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE documents SET text_hash = ?, record_json = ? WHERE id = ?`,
		hashText(t.Raw()), string(data), id,
	)
	if err != nil {
		return errors.NewIO("update document", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NewNotFound("document", id)
	}
	return nil
}

// Get loads a document by id, verifying the stored text hash.
func (s *Store) Get(id string) (*text.Text, error) {
	return s.load(`SELECT text_hash, record_json FROM documents WHERE id = ?`, id)
}

// GetByName loads a document by its unique name.
func (s *Store) GetByName(name string) (*text.Text, error) {
	return s.load(`SELECT text_hash, record_json FROM documents WHERE name = ?`, name)
}

func (s *Store) load(query, key string) (*text.Text, error) {
	var hash, data string
	err := s.db.QueryRow(query, key).Scan(&hash, &data)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("document", key)
	}
	if err != nil {
		return nil, errors.NewIO("load document", key, err)
	}
	t, err := record.TextFromJSON([]byte(data))
	if err != nil {
		return nil, err
	}
	if got := hashText(t.Raw()); got != hash {
		return nil, errors.Wrapf(errors.ErrConsistency,
			"document %s: text hash mismatch: stored %s, computed %s", key, hash, got)
	}
	return t, nil
}

// Delete removes a document by id.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return errors.NewIO("delete document", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NewNotFound("document", id)
	}
	logging.Debug("document deleted", "id", id)
	return nil
}

// List returns metadata for all stored documents, ordered by name.
func (s *Store) List() ([]DocumentInfo, error) {
	rows, err := s.db.Query(
		`SELECT id, name, text_hash, created_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, errors.NewIO("list documents", "", err)
	}
	defer rows.Close()

	var docs []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.ID, &d.Name, &d.TextHash, &d.CreatedAt); err != nil {
			return nil, errors.NewIO("scan document row", "", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIO("iterate documents", "", err)
	}
	return docs, nil
}
