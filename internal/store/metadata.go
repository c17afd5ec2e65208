package store

import (
	"database/sql"
	"errors"
)

const (
	keyLastSyllabus = "last_syllabus_id"
	keyBackendURL   = "backend_url"
)

// SetMetadata upserts a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetLastSyllabus remembers the syllabus most recently used for generation.
func (s *Store) SetLastSyllabus(id string) error {
	return s.SetMetadata(keyLastSyllabus, id)
}

// LastSyllabus returns the syllabus most recently used for generation.
func (s *Store) LastSyllabus() (string, error) {
	return s.GetMetadata(keyLastSyllabus)
}

// BindBackend records which backend this history belongs to. It reports
// whether the history was previously bound to a different URL.
func (s *Store) BindBackend(url string) (changed bool, err error) {
	prev, err := s.GetMetadata(keyBackendURL)
	if err != nil {
		return false, err
	}
	if prev == url {
		return false, nil
	}
	if err := s.SetMetadata(keyBackendURL, url); err != nil {
		return false, err
	}
	return prev != "", nil
}

// BackendURL returns the backend this history is bound to.
func (s *Store) BackendURL() (string, error) {
	return s.GetMetadata(keyBackendURL)
}
