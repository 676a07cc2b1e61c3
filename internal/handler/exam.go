package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
)

// datetime-local inputs submit this layout.
const startTimeLayout = "2006-01-02T15:04"

// examForm holds parsed exam form fields plus a field error message ID.
type examForm struct {
	Title           string
	Description     string
	StartTime       *time.Time
	DurationMinutes int
	ErrorID         string
}

func parseExamForm(r *http.Request) examForm {
	f := examForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	if f.Title == "" {
		f.ErrorID = "TitleRequired"
		return f
	}

	duration, err := strconv.Atoi(r.FormValue("duration_minutes"))
	if err != nil || duration <= 0 {
		f.ErrorID = "DurationInvalid"
		return f
	}
	f.DurationMinutes = duration

	if raw := strings.TrimSpace(r.FormValue("start_time")); raw != "" {
		t, err := time.ParseInLocation(startTimeLayout, raw, time.Local)
		if err != nil {
			f.ErrorID = "StartTimeInvalid"
			return f
		}
		f.StartTime = &t
	}

	return f
}

// requireStaff returns the acting staff user, or nil after redirecting a
// non-staff user to the dashboard.
func (h *Handler) requireStaff(w http.ResponseWriter, r *http.Request) *model.User {
	user := model.UserFromContext(r.Context())
	if user == nil || user.Role != model.RoleStaff {
		h.redirectDashboard(w, r, "")
		return nil
	}
	return user
}

func (h *Handler) handleCreateExamPage(w http.ResponseWriter, r *http.Request) {
	if h.requireStaff(w, r) == nil {
		return
	}
	h.render(w, r, "exam_form.html", map[string]any{
		"Action":          "/exams/new",
		"Title":           "",
		"Description":     "",
		"StartTime":       "",
		"DurationMinutes": 10,
	})
}

func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	user := h.requireStaff(w, r)
	if user == nil {
		return
	}

	f := parseExamForm(r)
	if f.ErrorID != "" {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "exam_form.html", map[string]any{
			"Action":          "/exams/new",
			"Error":           appI18n.T(r.Context(), f.ErrorID),
			"Title":           f.Title,
			"Description":     f.Description,
			"StartTime":       r.FormValue("start_time"),
			"DurationMinutes": f.DurationMinutes,
		})
		return
	}

	id, err := h.store.CreateExam(model.Exam{
		Title:           f.Title,
		Description:     f.Description,
		StartTime:       f.StartTime,
		DurationMinutes: f.DurationMinutes,
		CreatedBy:       user.ID,
	})
	if err != nil {
		slog.Error("failed to create exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("created exam", "id", id, "title", f.Title, "owner", user.Username)
	h.redirectDashboard(w, r, "ExamCreated")
}

func (h *Handler) handleEditExamPage(w http.ResponseWriter, r *http.Request) {
	user := h.requireStaff(w, r)
	if user == nil {
		return
	}
	examID := examIDParam(w, r)
	if examID == 0 {
		return
	}

	exam, err := h.store.GetExamForOwner(examID, user.ID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exam == nil {
		http.NotFound(w, r)
		return
	}

	var startValue string
	if exam.StartTime != nil {
		startValue = exam.StartTime.Local().Format(startTimeLayout)
	}

	h.render(w, r, "exam_form.html", map[string]any{
		"Action":          "/exams/" + strconv.FormatInt(examID, 10) + "/edit",
		"Title":           exam.Title,
		"Description":     exam.Description,
		"StartTime":       startValue,
		"DurationMinutes": exam.DurationMinutes,
		"Editing":         true,
	})
}

func (h *Handler) handleEditExam(w http.ResponseWriter, r *http.Request) {
	user := h.requireStaff(w, r)
	if user == nil {
		return
	}
	examID := examIDParam(w, r)
	if examID == 0 {
		return
	}

	exam, err := h.store.GetExamForOwner(examID, user.ID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exam == nil {
		http.NotFound(w, r)
		return
	}

	f := parseExamForm(r)
	if f.ErrorID != "" {
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, r, "exam_form.html", map[string]any{
			"Action":          "/exams/" + strconv.FormatInt(examID, 10) + "/edit",
			"Error":           appI18n.T(r.Context(), f.ErrorID),
			"Title":           f.Title,
			"Description":     f.Description,
			"StartTime":       r.FormValue("start_time"),
			"DurationMinutes": f.DurationMinutes,
			"Editing":         true,
		})
		return
	}

	exam.Title = f.Title
	exam.Description = f.Description
	exam.StartTime = f.StartTime
	exam.DurationMinutes = f.DurationMinutes
	if err := h.store.UpdateExam(*exam); err != nil {
		slog.Error("failed to update exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.redirectDashboard(w, r, "ExamUpdated")
}

func (h *Handler) handleDeleteExamPage(w http.ResponseWriter, r *http.Request) {
	user := h.requireStaff(w, r)
	if user == nil {
		return
	}
	examID := examIDParam(w, r)
	if examID == 0 {
		return
	}

	exam, err := h.store.GetExamForOwner(examID, user.ID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exam == nil {
		http.NotFound(w, r)
		return
	}

	h.render(w, r, "exam_delete.html", map[string]any{"Exam": exam})
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	user := h.requireStaff(w, r)
	if user == nil {
		return
	}
	examID := examIDParam(w, r)
	if examID == 0 {
		return
	}

	exam, err := h.store.GetExamForOwner(examID, user.ID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exam == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.store.DeleteExam(examID); err != nil {
		slog.Error("failed to delete exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("deleted exam", "id", examID, "owner", user.Username)
	h.redirectDashboard(w, r, "ExamDeleted")
}

// handleExamDetail serves the exam page. The owning staff user gets a
// read-only detail view; anyone else is treated as a student taking the
// exam, with a submission created on first visit and scored on POST.
func (h *Handler) handleExamDetail(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	examID := examIDParam(w, r)
	if examID == 0 {
		return
	}

	exam, err := h.store.GetExam(examID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exam == nil {
		http.NotFound(w, r)
		return
	}

	questions, err := h.store.ExamQuestions(examID)
	if err != nil {
		slog.Error("failed to list questions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if user.Role == model.RoleStaff && exam.CreatedBy == user.ID {
		h.render(w, r, "exam_detail_staff.html", map[string]any{
			"Exam":      exam,
			"Questions": questions,
			"IsActive":  exam.IsActive(h.now()),
		})
		return
	}

	submission, err := h.store.GetOrCreateSubmission(user.ID, examID)
	if err != nil {
		slog.Error("failed to get submission", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.Method == http.MethodPost {
		h.submitExam(w, r, exam, questions, submission)
		return
	}

	h.render(w, r, "exam_take.html", map[string]any{
		"Exam":       exam,
		"Questions":  questions,
		"Submission": submission,
		"TimeLeft":   model.SubmissionTimeLeft(*exam, h.now()),
	})
}

// submitExam parses question_<id> form fields into a typed answer map,
// scores the submission, and persists the result. Expiry of the exam
// window is advisory only: late submissions are still accepted.
func (h *Handler) submitExam(w http.ResponseWriter, r *http.Request, exam *model.Exam, questions []model.QuestionView, submission *model.Submission) {
	answers := model.AnswerMap{}
	for _, qv := range questions {
		raw := r.FormValue("question_" + strconv.FormatInt(qv.Question.ID, 10))
		if raw == "" {
			continue
		}
		choiceID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		answers[qv.Question.ID] = choiceID
	}

	choices, err := h.store.ChoicesByID(exam.ID)
	if err != nil {
		slog.Error("failed to load choices", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	score := model.ScoreSubmission(answers, choices)
	if err := h.store.RecordSubmission(submission.ID, answers, score, h.now()); err != nil {
		slog.Error("failed to record submission", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("scored submission",
		"submission_id", submission.ID,
		"exam_id", exam.ID,
		"answered", len(answers),
		"score", score,
	)

	h.render(w, r, "exam_submitted.html", map[string]any{
		"Exam":  exam,
		"Score": score,
	})
}

func (h *Handler) handleExamResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	examID := examIDParam(w, r)
	if examID == 0 {
		return
	}

	exam, err := h.store.GetExam(examID)
	if err != nil {
		slog.Error("failed to get exam", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if exam == nil {
		http.NotFound(w, r)
		return
	}

	// Only the staff owner may see results; others get an explicit error.
	if user.Role != model.RoleStaff || exam.CreatedBy != user.ID {
		h.redirectDashboard(w, r, "ResultsDenied")
		return
	}

	rows, err := h.store.ListSubmissionsForExam(examID)
	if err != nil {
		slog.Error("failed to list submissions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.render(w, r, "exam_results.html", map[string]any{
		"Exam":        exam,
		"Submissions": rows,
	})
}
