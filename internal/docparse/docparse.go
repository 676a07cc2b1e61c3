// Package docparse converts uploaded question documents into question and
// choice records.
//
// Expected document format, repeated per question block:
//
//	1. Question text
//	A. Option A
//	B. Option B
//	C. Option C
//	D. Option D
//	Answer: A
package docparse

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

var (
	questionRe  = regexp.MustCompile(`^\d+\.`)
	questionNum = regexp.MustCompile(`^\d+\.?\s*`)
	optionRe    = regexp.MustCompile(`^[A-Z]\.`)
	optionTag   = regexp.MustCompile(`^[A-Z]\.\s*`)
	answerRe    = regexp.MustCompile(`(?i)^answer[:\s]`)
	answerTag   = regexp.MustCompile(`(?i)^answer[:\s]*`)
	letterRe    = regexp.MustCompile(`[A-Z]`)
)

// ParsedOption is one option of a parsed question, in document order.
type ParsedOption struct {
	Text      string
	IsCorrect bool
}

// ParsedQuestion is one question block recognized in a document.
type ParsedQuestion struct {
	Text    string
	Options []ParsedOption
}

// Parse scans non-empty trimmed lines and extracts question blocks. A line
// matching `^<digits>.` starts a question; consecutive `^<letter>.` lines
// are its options in positional order; an optional trailing "Answer:" line
// names the correct letters. Lines matching nothing are skipped, and
// malformed blocks never produce an error: a block with no answer line is
// kept with all options marked incorrect.
func Parse(lines []string) []ParsedQuestion {
	var questions []ParsedQuestion

	i := 0
	for i < len(lines) {
		line := lines[i]
		if !questionRe.MatchString(line) {
			i++
			continue
		}

		q := ParsedQuestion{Text: questionNum.ReplaceAllString(line, "")}
		i++

		var options []string
		for i < len(lines) && optionRe.MatchString(lines[i]) {
			options = append(options, optionTag.ReplaceAllString(lines[i], ""))
			i++
		}

		var correct string
		if i < len(lines) && answerRe.MatchString(lines[i]) {
			rest := strings.TrimSpace(answerTag.ReplaceAllString(lines[i], ""))
			if fields := strings.Fields(rest); len(fields) > 0 {
				correct = strings.ToUpper(fields[0])
			}
			i++
		}

		letters := letterRe.FindAllString(correct, -1)
		for idx, opt := range options {
			letter := string(rune('A' + idx))
			isCorrect := false
			for _, l := range letters {
				if l == letter {
					isCorrect = true
					break
				}
			}
			q.Options = append(q.Options, ParsedOption{Text: opt, IsCorrect: isCorrect})
		}

		questions = append(questions, q)
	}

	return questions
}

// ExtractText reads plain text and returns its non-empty trimmed lines.
func ExtractText(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
