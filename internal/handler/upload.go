package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/examdesk/examdesk/internal/docparse"
	"github.com/examdesk/examdesk/internal/model"
)

const maxUploadBytes = 10 << 20

// handleUploadDocument imports a question document into an exam. Question
// blocks the parser does not recognize are dropped silently; the upload
// succeeds with whatever was recognized.
func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	user := h.requireStaff(w, r)
	if user == nil {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	examID, err := strconv.ParseInt(r.FormValue("exam_id"), 10, 64)
	if err != nil || examID <= 0 {
		http.NotFound(w, r)
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

	file, header, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	imported, err := h.store.HasImportedDocument(examID, hash)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if imported {
		h.redirectDashboard(w, r, "UploadDuplicate")
		return
	}

	var lines []string
	if strings.EqualFold(filepath.Ext(header.Filename), ".docx") {
		lines, err = docparse.ExtractDocx(bytes.NewReader(data), int64(len(data)))
	} else {
		lines, err = docparse.ExtractText(bytes.NewReader(data))
	}
	if err != nil {
		slog.Warn("unreadable document", "filename", header.Filename, "error", err)
		h.redirectDashboard(w, r, "UploadUnreadable")
		return
	}

	parsed := docparse.Parse(lines)
	for _, pq := range parsed {
		qID, err := h.store.InsertQuestion(model.Question{ExamID: examID, Text: pq.Text})
		if err != nil {
			slog.Error("failed to insert question", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, opt := range pq.Options {
			if _, err := h.store.InsertChoice(model.Choice{
				QuestionID: qID,
				Text:       opt.Text,
				IsCorrect:  opt.IsCorrect,
			}); err != nil {
				slog.Error("failed to insert choice", "error", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
	}

	if err := h.store.RecordImportedDocument(examID, header.Filename, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}

	slog.Info("imported questions",
		"exam_id", examID,
		"filename", header.Filename,
		"count", len(parsed),
	)
	http.Redirect(w, r,
		"/dashboard?msg=QuestionsImported&count="+strconv.Itoa(len(parsed)),
		http.StatusSeeOther)
}
