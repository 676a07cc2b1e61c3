package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/examdesk/examdesk/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = map[string]*template.Template{}

var templateFuncs = template.FuncMap{
	"fmtTime": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"fmtScore": func(s *float64) string {
		if s == nil {
			return "-"
		}
		return fmt.Sprintf("%.1f%%", *s)
	},
}

func init() {
	pages := []string{
		"register.html",
		"login.html",
		"dashboard_staff.html",
		"dashboard_student.html",
		"exam_form.html",
		"exam_detail_staff.html",
		"exam_take.html",
		"exam_submitted.html",
		"exam_delete.html",
		"exam_results.html",
	}
	for _, page := range pages {
		pageTemplates[page] = template.Must(
			template.New("layout.html").Funcs(templateFuncs).
				ParseFS(templateFS, "templates/layout.html", "templates/"+page),
		)
	}
}

// render executes a page template inside the layout. The CSRF token and
// authenticated user are always available to templates.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data map[string]any) {
	tmpl, ok := pageTemplates[page]
	if !ok {
		slog.Error("unknown template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["User"]; !ok {
		data["User"] = model.UserFromContext(r.Context())
	}
	data["CSRFToken"] = model.CSRFTokenFromContext(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		slog.Error("render error", "page", page, "error", err)
	}
}
