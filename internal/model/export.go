package model

import "time"

// ExamExport is the top-level JSON structure for exam result export.
type ExamExport struct {
	ExamID          int64              `json:"exam_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	StartTime       *time.Time         `json:"start_time,omitempty"`
	DurationMinutes int                `json:"duration_minutes"`
	Questions       []QuestionExport   `json:"questions"`
	Submissions     []SubmissionExport `json:"submissions"`
}

// QuestionExport holds one question with its choices.
type QuestionExport struct {
	ID      int64          `json:"id"`
	Text    string         `json:"text"`
	Choices []ChoiceExport `json:"choices"`
}

// ChoiceExport holds one choice, including the correct flag.
type ChoiceExport struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// SubmissionExport holds one student's submission for export.
type SubmissionExport struct {
	Student     string     `json:"student"`
	DisplayName string     `json:"display_name,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Answers     AnswerMap  `json:"answers"`
	Score       *float64   `json:"score,omitempty"`
}
