package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/examdesk/examdesk/internal/i18n"
	"github.com/examdesk/examdesk/internal/model"
	"github.com/examdesk/examdesk/internal/store"
)

const testCSRFToken = "test-csrf-token"

func newTestServer(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	if err := appI18n.Init("en"); err != nil {
		t.Fatalf("i18n init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h := New(s, model.AppConfig{Lang: "en"})
	r := chi.NewRouter()
	h.Routes(r)
	return s, r
}

func createUser(t *testing.T, s *store.Store, username string, role model.Role) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	id, err := s.CreateUser(model.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return id
}

func loginAs(t *testing.T, s *store.Store, userID int64) *http.Cookie {
	t.Helper()
	token, err := s.CreateAuthSession(userID)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	return &http.Cookie{Name: "session", Value: token}
}

func get(t *testing.T, srv http.Handler, path string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if session != nil {
		req.AddCookie(session)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, srv http.Handler, path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	form.Set("csrf_token", testCSRFToken)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	if session != nil {
		req.AddCookie(session)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	_, srv := newTestServer(t)

	w := get(t, srv, "/dashboard", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Errorf("redirect to %q, want /login", loc)
	}
}

func TestRegisterCreatesUserAndSession(t *testing.T) {
	s, srv := newTestServer(t)

	w := postForm(t, srv, "/register", url.Values{
		"username": {"carol"},
		"password": {"secret"},
		"role":     {"student"},
	}, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303: %s", w.Code, w.Body.String())
	}

	u, err := s.GetUserByUsername("carol")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if u == nil || u.Role != model.RoleStudent {
		t.Fatalf("unexpected user: %+v", u)
	}

	var sessionCookie bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			sessionCookie = true
		}
	}
	if !sessionCookie {
		t.Error("expected a session cookie after registration")
	}
}

func TestRegisterRejectsBadRole(t *testing.T) {
	s, srv := newTestServer(t)

	w := postForm(t, srv, "/register", url.Values{
		"username": {"mallory"},
		"password": {"secret"},
		"role":     {"admin"},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if u, _ := s.GetUserByUsername("mallory"); u != nil {
		t.Error("user created despite invalid role")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s, srv := newTestServer(t)
	createUser(t, s, "alice", model.RoleStaff)

	w := postForm(t, srv, "/login", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Error("expected login error message in response")
	}
}

func TestLoginThenDashboard(t *testing.T) {
	s, srv := newTestServer(t)
	createUser(t, s, "alice", model.RoleStaff)

	w := postForm(t, srv, "/login", url.Values{
		"username": {"alice"},
		"password": {"secret"},
	}, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", w.Code)
	}

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("no session cookie after login")
	}

	w = get(t, srv, "/dashboard", session)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "My exams") {
		t.Error("expected staff dashboard")
	}
}

func TestStudentCannotCreateExam(t *testing.T) {
	s, srv := newTestServer(t)
	student := createUser(t, s, "carol", model.RoleStudent)
	session := loginAs(t, s, student)

	w := get(t, srv, "/exams/new", session)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Errorf("GET /exams/new: status %d location %q, want dashboard redirect",
			w.Code, w.Header().Get("Location"))
	}

	w = postForm(t, srv, "/exams/new", url.Values{
		"title":            {"Sneaky exam"},
		"duration_minutes": {"10"},
	}, session)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("POST /exams/new: status = %d, want 303", w.Code)
	}

	exams, err := s.ListExams()
	if err != nil {
		t.Fatalf("ListExams: %v", err)
	}
	if len(exams) != 0 {
		t.Error("student POST created an exam")
	}
}

func TestStudentCannotUploadDocument(t *testing.T) {
	s, srv := newTestServer(t)
	staff := createUser(t, s, "alice", model.RoleStaff)
	student := createUser(t, s, "carol", model.RoleStudent)
	session := loginAs(t, s, student)

	examID, err := s.CreateExam(model.Exam{Title: "Quiz", DurationMinutes: 10, CreatedBy: staff})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	w := postForm(t, srv, "/exams/upload", url.Values{
		"exam_id": {strconv.FormatInt(examID, 10)},
	}, session)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/dashboard" {
		t.Errorf("status %d location %q, want dashboard redirect", w.Code, w.Header().Get("Location"))
	}
	if count, _ := s.QuestionCount(examID); count != 0 {
		t.Error("student upload mutated questions")
	}
}

func TestStaffCannotTouchOthersExam(t *testing.T) {
	s, srv := newTestServer(t)
	alice := createUser(t, s, "alice", model.RoleStaff)
	bob := createUser(t, s, "bob", model.RoleStaff)
	bobSession := loginAs(t, s, bob)

	examID, err := s.CreateExam(model.Exam{Title: "Alice's", DurationMinutes: 10, CreatedBy: alice})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	path := "/exams/" + strconv.FormatInt(examID, 10)

	if w := get(t, srv, path+"/edit", bobSession); w.Code != http.StatusNotFound {
		t.Errorf("edit page status = %d, want 404", w.Code)
	}

	w := postForm(t, srv, path+"/delete", url.Values{}, bobSession)
	if w.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", w.Code)
	}
	if e, _ := s.GetExam(examID); e == nil {
		t.Error("exam deleted by non-owner")
	}

	// Results produce an explicit denial rather than a 404.
	w = get(t, srv, path+"/results", bobSession)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("results status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "msg=ResultsDenied") {
		t.Errorf("results redirect %q, want ResultsDenied flash", loc)
	}
}

// seedExam creates an exam with one two-choice question per entry of
// correct, returning the exam ID, question IDs, and per-question
// (correctID, wrongID) pairs.
func seedExam(t *testing.T, s *store.Store, ownerID int64, numQuestions int) (int64, []int64, [][2]int64) {
	t.Helper()
	examID, err := s.CreateExam(model.Exam{Title: "Quiz", DurationMinutes: 10, CreatedBy: ownerID})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	var qids []int64
	var pairs [][2]int64
	for i := 0; i < numQuestions; i++ {
		qID, err := s.InsertQuestion(model.Question{ExamID: examID, Text: "Q" + strconv.Itoa(i+1)})
		if err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
		correctID, err := s.InsertChoice(model.Choice{QuestionID: qID, Text: "right", IsCorrect: true})
		if err != nil {
			t.Fatalf("InsertChoice: %v", err)
		}
		wrongID, err := s.InsertChoice(model.Choice{QuestionID: qID, Text: "wrong"})
		if err != nil {
			t.Fatalf("InsertChoice: %v", err)
		}
		qids = append(qids, qID)
		pairs = append(pairs, [2]int64{correctID, wrongID})
	}
	return examID, qids, pairs
}

func TestStudentTakeAndSubmitExam(t *testing.T) {
	s, srv := newTestServer(t)
	staff := createUser(t, s, "alice", model.RoleStaff)
	student := createUser(t, s, "carol", model.RoleStudent)
	session := loginAs(t, s, student)

	examID, qids, pairs := seedExam(t, s, staff, 2)
	path := "/exams/" + strconv.FormatInt(examID, 10)

	// First visit creates the submission.
	w := get(t, srv, path, session)
	if w.Code != http.StatusOK {
		t.Fatalf("take page status = %d, want 200", w.Code)
	}
	sub, err := s.GetOrCreateSubmission(student, examID)
	if err != nil {
		t.Fatalf("GetOrCreateSubmission: %v", err)
	}
	if sub.SubmittedAt != nil {
		t.Error("submission already submitted after first visit")
	}

	// One correct, one wrong answer: 50%.
	form := url.Values{}
	form.Set("question_"+strconv.FormatInt(qids[0], 10), strconv.FormatInt(pairs[0][0], 10))
	form.Set("question_"+strconv.FormatInt(qids[1], 10), strconv.FormatInt(pairs[1][1], 10))
	w = postForm(t, srv, path, form, session)
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "50.0") {
		t.Errorf("expected 50.0 in response body")
	}

	sub, _ = s.GetOrCreateSubmission(student, examID)
	if sub.Score == nil || *sub.Score != 50 {
		t.Errorf("stored score = %v, want 50", sub.Score)
	}
	if sub.SubmittedAt == nil {
		t.Error("submitted_at not stamped")
	}
}

func TestStaffOwnerSeesReadOnlyDetail(t *testing.T) {
	s, srv := newTestServer(t)
	staff := createUser(t, s, "alice", model.RoleStaff)
	session := loginAs(t, s, staff)

	examID, _, _ := seedExam(t, s, staff, 1)

	w := get(t, srv, "/exams/"+strconv.FormatInt(examID, 10), session)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "(correct)") {
		t.Error("staff detail should mark correct choices")
	}

	// No submission row is created for the owner.
	rows, err := s.ListSubmissionsForExam(examID)
	if err != nil {
		t.Fatalf("ListSubmissionsForExam: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("owner visit created %d submissions", len(rows))
	}
}

func TestStaffUploadDocument(t *testing.T) {
	s, srv := newTestServer(t)
	staff := createUser(t, s, "alice", model.RoleStaff)
	session := loginAs(t, s, staff)

	examID, err := s.CreateExam(model.Exam{Title: "Quiz", DurationMinutes: 10, CreatedBy: staff})
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}

	doc := "1. What is 2+2?\nA. 3\nB. 4\nAnswer: B\n"

	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("csrf_token", testCSRFToken)
		_ = mw.WriteField("exam_id", strconv.FormatInt(examID, 10))
		fw, err := mw.CreateFormFile("document", "quiz.txt")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write([]byte(doc)); err != nil {
			t.Fatalf("write file part: %v", err)
		}
		_ = mw.Close()

		req := httptest.NewRequest("POST", "/exams/upload", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
		req.AddCookie(session)
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		return w
	}

	w := upload()
	if w.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d, want 303: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "msg=QuestionsImported&count=1") {
		t.Errorf("redirect %q, want QuestionsImported flash with count", loc)
	}

	views, err := s.ExamQuestions(examID)
	if err != nil {
		t.Fatalf("ExamQuestions: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 imported question, got %d", len(views))
	}
	if len(views[0].Choices) != 2 || !views[0].Choices[1].IsCorrect {
		t.Errorf("unexpected choices: %+v", views[0].Choices)
	}

	// Re-uploading the identical document is rejected as a duplicate.
	w = upload()
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "msg=UploadDuplicate") {
		t.Errorf("redirect %q, want UploadDuplicate flash", loc)
	}
	if count, _ := s.QuestionCount(examID); count != 1 {
		t.Errorf("duplicate upload changed question count to %d", count)
	}
}

func TestPostWithoutCSRFTokenRejected(t *testing.T) {
	s, srv := newTestServer(t)
	student := createUser(t, s, "carol", model.RoleStudent)
	session := loginAs(t, s, student)

	req := httptest.NewRequest("POST", "/logout", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(session)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestExamNotFound(t *testing.T) {
	s, srv := newTestServer(t)
	student := createUser(t, s, "carol", model.RoleStudent)
	session := loginAs(t, s, student)

	if w := get(t, srv, "/exams/9999", session); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := get(t, srv, "/exams/banana", session); w.Code != http.StatusNotFound {
		t.Errorf("status for bad ID = %d, want 404", w.Code)
	}
}
