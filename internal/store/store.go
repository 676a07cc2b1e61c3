package store

import (
	"database/sql"
	"fmt"

	"github.com/examdesk/examdesk/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_time DATETIME,
		duration_minutes INTEGER NOT NULL DEFAULT 10,
		created_by INTEGER NOT NULL,
		FOREIGN KEY (created_by) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS choices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		is_correct BOOLEAN NOT NULL DEFAULT 0,
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		exam_id INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		submitted_at DATETIME,
		answers TEXT NOT NULL DEFAULT '{}',
		score REAL,
		UNIQUE (student_id, exam_id),
		FOREIGN KEY (student_id) REFERENCES users(id),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);

	CREATE TABLE IF NOT EXISTS imported_documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		hash TEXT NOT NULL,
		imported_at DATETIME NOT NULL,
		UNIQUE (exam_id, hash),
		FOREIGN KEY (exam_id) REFERENCES exams(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam stores an exam and returns its ID.
func (s *Store) CreateExam(e model.Exam) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO exams (title, description, start_time, duration_minutes, created_by)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.StartTime, e.DurationMinutes, e.CreatedBy,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetExam returns an exam by ID, or nil if not found.
func (s *Store) GetExam(id int64) (*model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, title, description, start_time, duration_minutes, created_by
		 FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.DurationMinutes, &e.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExamForOwner returns an exam only when it is owned by the given user.
func (s *Store) GetExamForOwner(id, ownerID int64) (*model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(
		`SELECT id, title, description, start_time, duration_minutes, created_by
		 FROM exams WHERE id = ? AND created_by = ?`, id, ownerID,
	).Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.DurationMinutes, &e.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.Exam, error) {
	return s.listExams(`SELECT id, title, description, start_time, duration_minutes, created_by
		FROM exams ORDER BY id DESC`)
}

// ListExamsByOwner returns the exams created by a staff user, newest first.
func (s *Store) ListExamsByOwner(ownerID int64) ([]model.Exam, error) {
	return s.listExams(`SELECT id, title, description, start_time, duration_minutes, created_by
		FROM exams WHERE created_by = ? ORDER BY id DESC`, ownerID)
}

func (s *Store) listExams(query string, args ...any) ([]model.Exam, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.DurationMinutes, &e.CreatedBy); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// UpdateExam updates an exam's editable fields.
func (s *Store) UpdateExam(e model.Exam) error {
	_, err := s.db.Exec(
		`UPDATE exams SET title = ?, description = ?, start_time = ?, duration_minutes = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.StartTime, e.DurationMinutes, e.ID,
	)
	return err
}

// DeleteExam removes an exam and everything hanging off it: questions,
// choices, submissions, and import records.
func (s *Store) DeleteExam(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM choices WHERE question_id IN (SELECT id FROM questions WHERE exam_id = ?)`, id,
	); err != nil {
		return err
	}
	for _, q := range []string{
		`DELETE FROM questions WHERE exam_id = ?`,
		`DELETE FROM submissions WHERE exam_id = ?`,
		`DELETE FROM imported_documents WHERE exam_id = ?`,
		`DELETE FROM exams WHERE id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
