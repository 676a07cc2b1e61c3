package store

import (
	"github.com/examdesk/examdesk/internal/model"
)

// InsertQuestion stores a question and returns its ID.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO questions (exam_id, text) VALUES (?, ?)`,
		q.ExamID, q.Text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertChoice stores a choice and returns its ID.
func (s *Store) InsertChoice(c model.Choice) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO choices (question_id, text, is_correct) VALUES (?, ?, ?)`,
		c.QuestionID, c.Text, c.IsCorrect,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListQuestions returns an exam's questions in insertion order.
func (s *Store) ListQuestions(examID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, exam_id, text FROM questions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ListChoices returns a question's choices in insertion order.
func (s *Store) ListChoices(questionID int64) ([]model.Choice, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, text, is_correct FROM choices WHERE question_id = ? ORDER BY id`,
		questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var choices []model.Choice
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		choices = append(choices, c)
	}
	return choices, rows.Err()
}

// ExamQuestions returns an exam's questions with their choices, in
// insertion order, ready for rendering.
func (s *Store) ExamQuestions(examID int64) ([]model.QuestionView, error) {
	questions, err := s.ListQuestions(examID)
	if err != nil {
		return nil, err
	}
	var views []model.QuestionView
	for _, q := range questions {
		choices, err := s.ListChoices(q.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.QuestionView{Question: q, Choices: choices})
	}
	return views, nil
}

// ChoicesByID returns every choice of an exam keyed by choice ID, the
// lookup shape scoring needs.
func (s *Store) ChoicesByID(examID int64) (map[int64]model.Choice, error) {
	rows, err := s.db.Query(
		`SELECT c.id, c.question_id, c.text, c.is_correct
		 FROM choices c
		 JOIN questions q ON q.id = c.question_id
		 WHERE q.exam_id = ?`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	choices := make(map[int64]model.Choice)
	for rows.Next() {
		var c model.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Text, &c.IsCorrect); err != nil {
			return nil, err
		}
		choices[c.ID] = c
	}
	return choices, rows.Err()
}

// QuestionCount returns the number of questions in an exam.
func (s *Store) QuestionCount(examID int64) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE exam_id = ?`, examID).Scan(&count)
	return count, err
}
