package docparse

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestParseTwoQuestions(t *testing.T) {
	lines := []string{
		"1. What is 2+2?",
		"A. 3",
		"B. 4",
		"Answer: B",
		"2. Capital of France?",
		"A. Paris",
		"B. London",
		"Answer: A",
	}

	qs := Parse(lines)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}

	q1 := qs[0]
	if q1.Text != "What is 2+2?" {
		t.Errorf("q1 text = %q", q1.Text)
	}
	if len(q1.Options) != 2 {
		t.Fatalf("q1: expected 2 options, got %d", len(q1.Options))
	}
	if q1.Options[0].Text != "3" || q1.Options[0].IsCorrect {
		t.Errorf("q1 option A = %+v, want incorrect '3'", q1.Options[0])
	}
	if q1.Options[1].Text != "4" || !q1.Options[1].IsCorrect {
		t.Errorf("q1 option B = %+v, want correct '4'", q1.Options[1])
	}

	q2 := qs[1]
	if q2.Text != "Capital of France?" {
		t.Errorf("q2 text = %q", q2.Text)
	}
	if !q2.Options[0].IsCorrect || q2.Options[1].IsCorrect {
		t.Errorf("q2: expected Paris correct, London incorrect: %+v", q2.Options)
	}
}

func TestParseSkipsUnrecognizedLines(t *testing.T) {
	lines := []string{
		"Midterm Exam - Section 1",
		"1. What is 2+2?",
		"A. 3",
		"B. 4",
		"Answer: B",
		"(end of section)",
		"2. Capital of France?",
		"A. Paris",
		"B. London",
		"Answer: A",
	}

	qs := Parse(lines)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Text != "What is 2+2?" || qs[1].Text != "Capital of France?" {
		t.Errorf("stray lines disturbed question blocks: %+v", qs)
	}
}

func TestParseMissingAnswerLine(t *testing.T) {
	lines := []string{
		"1. Pick one",
		"A. first",
		"B. second",
	}

	qs := Parse(lines)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	for _, opt := range qs[0].Options {
		if opt.IsCorrect {
			t.Errorf("option %q marked correct without an answer line", opt.Text)
		}
	}
}

func TestParseMultipleCorrectLetters(t *testing.T) {
	lines := []string{
		"1. Select the primes",
		"A. 2",
		"B. 4",
		"C. 5",
		"Answer: AC",
	}

	qs := Parse(lines)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	opts := qs[0].Options
	if !opts[0].IsCorrect || opts[1].IsCorrect || !opts[2].IsCorrect {
		t.Errorf("expected A and C correct: %+v", opts)
	}
}

func TestParseAnswerCaseAndSpacing(t *testing.T) {
	lines := []string{
		"1. Q",
		"A. yes",
		"B. no",
		"answer:  b extra ignored",
	}

	qs := Parse(lines)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if qs[0].Options[0].IsCorrect || !qs[0].Options[1].IsCorrect {
		t.Errorf("lowercase answer letter not honored: %+v", qs[0].Options)
	}
}

func TestParseQuestionWithNoOptions(t *testing.T) {
	lines := []string{
		"1. An essay question with no options",
		"2. Q2",
		"A. opt",
		"Answer: A",
	}

	qs := Parse(lines)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if len(qs[0].Options) != 0 {
		t.Errorf("expected no options on first question, got %d", len(qs[0].Options))
	}
	if len(qs[1].Options) != 1 || !qs[1].Options[0].IsCorrect {
		t.Errorf("second question parsed wrong: %+v", qs[1])
	}
}

func TestParseEmptyInput(t *testing.T) {
	if qs := Parse(nil); len(qs) != 0 {
		t.Errorf("expected no questions, got %d", len(qs))
	}
}

func TestExtractText(t *testing.T) {
	in := "1. Q\n\n  A. opt  \n\t\nAnswer: A\n"
	lines, err := ExtractText(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	want := []string{"1. Q", "A. opt", "Answer: A"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

// buildDocx assembles a minimal .docx with one paragraph per input string.
func buildDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		doc.WriteString(`<w:p><w:r><w:t>`)
		doc.WriteString(p)
		doc.WriteString(`</w:t></w:r></w:p>`)
	}
	doc.WriteString(`</w:body></w:document>`)

	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(doc.String())); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractDocx(t *testing.T) {
	data := buildDocx(t, []string{"1. What is 2+2?", "A. 3", "B. 4", "  ", "Answer: B"})

	lines, err := ExtractDocx(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ExtractDocx: %v", err)
	}
	want := []string{"1. What is 2+2?", "A. 3", "B. 4", "Answer: B"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestExtractDocxNotAnArchive(t *testing.T) {
	data := []byte("plain text, not a zip")
	if _, err := ExtractDocx(bytes.NewReader(data), int64(len(data))); err == nil {
		t.Error("expected error for non-zip input")
	}
}

func TestExtractDocxMissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("word/other.xml")
	_, _ = f.Write([]byte("<x/>"))
	_ = zw.Close()

	if _, err := ExtractDocx(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err == nil {
		t.Error("expected error when word/document.xml is absent")
	}
}
