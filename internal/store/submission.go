package store

import (
	"database/sql"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

// GetOrCreateSubmission returns the student's submission for an exam,
// creating an empty one with the current start timestamp on first visit.
// The UNIQUE (student_id, exam_id) index keeps concurrent first visits
// from producing duplicate rows: the loser of the race re-reads the
// winner's row.
func (s *Store) GetOrCreateSubmission(studentID, examID int64) (*model.Submission, error) {
	sub, err := s.getSubmission(studentID, examID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return sub, nil
	}

	_, err = s.db.Exec(
		`INSERT INTO submissions (student_id, exam_id, started_at, answers)
		 VALUES (?, ?, ?, '{}')
		 ON CONFLICT (student_id, exam_id) DO NOTHING`,
		studentID, examID, time.Now(),
	)
	if err != nil {
		return nil, err
	}
	return s.getSubmission(studentID, examID)
}

func (s *Store) getSubmission(studentID, examID int64) (*model.Submission, error) {
	var sub model.Submission
	err := s.db.QueryRow(
		`SELECT id, student_id, exam_id, started_at, submitted_at, answers, score
		 FROM submissions WHERE student_id = ? AND exam_id = ?`,
		studentID, examID,
	).Scan(&sub.ID, &sub.StudentID, &sub.ExamID, &sub.StartedAt, &sub.SubmittedAt, &sub.Answers, &sub.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// RecordSubmission persists a submission's answers, score, and submitted-at
// timestamp. Re-submitting overwrites the prior score.
func (s *Store) RecordSubmission(id int64, answers model.AnswerMap, score float64, submittedAt time.Time) error {
	_, err := s.db.Exec(
		`UPDATE submissions SET answers = ?, score = ?, submitted_at = ? WHERE id = ?`,
		answers, score, submittedAt, id,
	)
	return err
}

// ListSubmissionsForExam returns all submissions for an exam together with
// the submitting students' names, newest first.
func (s *Store) ListSubmissionsForExam(examID int64) ([]model.SubmissionRow, error) {
	rows, err := s.db.Query(
		`SELECT sub.id, sub.student_id, sub.exam_id, sub.started_at, sub.submitted_at,
		        sub.answers, sub.score, u.username, u.display_name
		 FROM submissions sub
		 JOIN users u ON u.id = sub.student_id
		 WHERE sub.exam_id = ?
		 ORDER BY sub.id DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []model.SubmissionRow
	for rows.Next() {
		var r model.SubmissionRow
		sub := &r.Submission
		if err := rows.Scan(&sub.ID, &sub.StudentID, &sub.ExamID, &sub.StartedAt,
			&sub.SubmittedAt, &sub.Answers, &sub.Score, &r.Username, &r.DisplayName); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListSubmissionsForStudent returns a student's submissions across all
// exams, newest first.
func (s *Store) ListSubmissionsForStudent(studentID int64) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT id, student_id, exam_id, started_at, submitted_at, answers, score
		 FROM submissions WHERE student_id = ? ORDER BY id DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.StudentID, &sub.ExamID, &sub.StartedAt,
			&sub.SubmittedAt, &sub.Answers, &sub.Score); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
