package model

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Role represents a user's access level.
type Role string

const (
	// RoleStaff can author exams and view results.
	RoleStaff Role = "staff"
	// RoleStudent can take exams.
	RoleStudent Role = "student"
)

// ValidRole reports whether s is a recognized role.
func ValidRole(s string) bool {
	return Role(s) == RoleStaff || Role(s) == RoleStudent
}

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}

// Exam is a timed collection of multiple-choice questions owned by a staff user.
type Exam struct {
	ID              int64
	Title           string
	Description     string
	StartTime       *time.Time
	DurationMinutes int
	CreatedBy       int64
}

// EndTime returns the exam's end (start + duration), or nil when no start
// time is configured.
func (e Exam) EndTime() *time.Time {
	if e.StartTime == nil {
		return nil
	}
	end := e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
	return &end
}

// IsActive reports whether the exam is running at the given instant
// (start <= now <= end). An exam with no start time is never active.
func (e Exam) IsActive(now time.Time) bool {
	end := e.EndTime()
	if end == nil {
		return false
	}
	return !now.Before(*e.StartTime) && !now.After(*end)
}

// TimeLeft returns the whole seconds remaining until the exam ends,
// never negative, and 0 when the exam has no end time.
func (e Exam) TimeLeft(now time.Time) int {
	end := e.EndTime()
	if end == nil {
		return 0
	}
	left := int(end.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// Question belongs to exactly one exam.
type Question struct {
	ID     int64
	ExamID int64
	Text   string
}

// Choice is one selectable option for a question.
type Choice struct {
	ID         int64
	QuestionID int64
	Text       string
	IsCorrect  bool
}

// AnswerMap maps question IDs to the chosen choice ID. It is stored as a
// JSON object with string keys, so the persisted shape round-trips while
// code works with typed integer IDs.
type AnswerMap map[int64]int64

// MarshalJSON encodes the map with string keys.
func (m AnswerMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]int64, len(m))
	for qid, cid := range m {
		out[strconv.FormatInt(qid, 10)] = cid
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a JSON object with string question-ID keys.
func (m *AnswerMap) UnmarshalJSON(data []byte) error {
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(AnswerMap, len(raw))
	for k, cid := range raw {
		qid, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("answer key %q: %w", k, err)
		}
		out[qid] = cid
	}
	*m = out
	return nil
}

// Value implements driver.Valuer so answers persist as a JSON TEXT column.
func (m AnswerMap) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (m *AnswerMap) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = AnswerMap{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return fmt.Errorf("scan answers: unsupported type %T", src)
	}
}

// Submission is one student's attempt at one exam.
type Submission struct {
	ID          int64
	StudentID   int64
	ExamID      int64
	StartedAt   time.Time
	SubmittedAt *time.Time
	Answers     AnswerMap
	Score       *float64
}

// ScoreSubmission computes the percentage of answered questions whose
// chosen choice is correct. Answers referencing an unknown choice ID are
// excluded from both counts; an empty answer set scores 0. Persisting the
// result is the caller's responsibility.
func ScoreSubmission(answers AnswerMap, choices map[int64]Choice) float64 {
	total := 0
	correct := 0
	for _, cid := range answers {
		c, ok := choices[cid]
		if !ok {
			continue
		}
		total++
		if c.IsCorrect {
			correct++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// SubmissionTimeLeft returns the seconds a student has left on an exam,
// computed from the exam's configured start time and duration. Exams with
// no start time report 0.
func SubmissionTimeLeft(exam Exam, now time.Time) int {
	return exam.TimeLeft(now)
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	Lang          string // UI language for localized messages
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
}

// QuestionView combines a question with its choices for display.
type QuestionView struct {
	Question Question
	Choices  []Choice
}

// SubmissionRow combines a submission with the student's identity for the
// staff results page.
type SubmissionRow struct {
	Submission  Submission
	Username    string
	DisplayName string
}
