package store

import (
	"database/sql"
	"time"
)

// HasImportedDocument reports whether a document with the given content
// hash was already imported into the exam. Re-uploading the same file is a
// no-op at the handler level.
func (s *Store) HasImportedDocument(examID int64, hash string) (bool, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM imported_documents WHERE exam_id = ? AND hash = ?`, examID, hash,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordImportedDocument remembers a document import for duplicate
// detection.
func (s *Store) RecordImportedDocument(examID int64, filename, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_documents (exam_id, filename, hash, imported_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (exam_id, hash) DO NOTHING`,
		examID, filename, hash, time.Now(),
	)
	return err
}
