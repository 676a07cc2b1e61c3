package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	config model.AppConfig
	now    func() time.Time
}

// New creates a new Handler.
func New(s *store.Store, cfg model.AppConfig) *Handler {
	return &Handler{store: s, config: cfg, now: time.Now}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.csrfMiddleware)

		r.Get("/register", h.handleRegisterPage)
		r.Post("/register", h.handleRegister)
		r.Get("/login", h.handleLoginPage)
		r.Post("/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			})
			r.Post("/logout", h.handleLogout)
			r.Get("/dashboard", h.handleDashboard)

			r.Get("/exams/new", h.handleCreateExamPage)
			r.Post("/exams/new", h.handleCreateExam)
			r.Post("/exams/upload", h.handleUploadDocument)

			r.Get("/exams/{examID}", h.handleExamDetail)
			r.Post("/exams/{examID}", h.handleExamDetail)
			r.Get("/exams/{examID}/edit", h.handleEditExamPage)
			r.Post("/exams/{examID}/edit", h.handleEditExam)
			r.Get("/exams/{examID}/delete", h.handleDeleteExamPage)
			r.Post("/exams/{examID}/delete", h.handleDeleteExam)
			r.Get("/exams/{examID}/results", h.handleExamResults)
		})
	})
}

// examIDParam parses the examID URL parameter. A zero return means the
// parameter was malformed and a 404 has been written.
func examIDParam(w http.ResponseWriter, r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "examID"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0
	}
	return id
}

// redirectDashboard sends the user to the dashboard, optionally carrying a
// flash message ID in the query string.
func (h *Handler) redirectDashboard(w http.ResponseWriter, r *http.Request, msgID string) {
	target := "/dashboard"
	if msgID != "" {
		target += "?msg=" + msgID
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var message string
	if msgID := r.URL.Query().Get("msg"); msgID != "" {
		if count := r.URL.Query().Get("count"); count != "" {
			message = appI18n.Td(r.Context(), msgID, map[string]any{"Count": count})
		} else {
			message = appI18n.T(r.Context(), msgID)
		}
	}

	if user.Role == model.RoleStaff {
		exams, err := h.store.ListExamsByOwner(user.ID)
		if err != nil {
			slog.Error("failed to list exams", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.render(w, r, "dashboard_staff.html", map[string]any{
			"User":    user,
			"Exams":   exams,
			"Message": message,
		})
		return
	}

	exams, err := h.store.ListExams()
	if err != nil {
		slog.Error("failed to list exams", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	submissions, err := h.store.ListSubmissionsForStudent(user.ID)
	if err != nil {
		slog.Error("failed to list submissions", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Titles for the student's submission list.
	titles := make(map[int64]string, len(exams))
	for _, e := range exams {
		titles[e.ID] = e.Title
	}

	h.render(w, r, "dashboard_student.html", map[string]any{
		"User":        user,
		"Exams":       exams,
		"Submissions": submissions,
		"ExamTitles":  titles,
		"Message":     message,
	})
}
