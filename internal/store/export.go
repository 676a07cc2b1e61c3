package store

import (
	"fmt"

	"github.com/examdesk/examdesk/internal/model"
)

// ExportExam builds the export-ready view of one exam: its questions with
// choices (including the correct flags) and every submission with the
// student's identity.
func (s *Store) ExportExam(examID int64) (*model.ExamExport, error) {
	exam, err := s.GetExam(examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, fmt.Errorf("exam %d not found", examID)
	}

	views, err := s.ExamQuestions(examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	export := &model.ExamExport{
		ExamID:          exam.ID,
		Title:           exam.Title,
		Description:     exam.Description,
		StartTime:       exam.StartTime,
		DurationMinutes: exam.DurationMinutes,
	}

	for _, qv := range views {
		qe := model.QuestionExport{ID: qv.Question.ID, Text: qv.Question.Text}
		for _, c := range qv.Choices {
			qe.Choices = append(qe.Choices, model.ChoiceExport{
				ID:        c.ID,
				Text:      c.Text,
				IsCorrect: c.IsCorrect,
			})
		}
		export.Questions = append(export.Questions, qe)
	}

	rows, err := s.ListSubmissionsForExam(examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	for _, r := range rows {
		export.Submissions = append(export.Submissions, model.SubmissionExport{
			Student:     r.Username,
			DisplayName: r.DisplayName,
			StartedAt:   r.Submission.StartedAt,
			SubmittedAt: r.Submission.SubmittedAt,
			Answers:     r.Submission.Answers,
			Score:       r.Submission.Score,
		})
	}

	return export, nil
}
