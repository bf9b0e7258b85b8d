package course

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ErrMalformedHeader is returned when a transcript does not start with the
// expected "Course Title:" header. Callers skip the file and continue.
type ErrMalformedHeader struct {
	Line string
}

func (e *ErrMalformedHeader) Error() string {
	return fmt.Sprintf("transcript header is malformed, expected %q, got %q", titlePrefix, e.Line)
}

// Parse reads a plain-text course transcript: a fixed header (Course Title,
// Course Link, Course Instructor) followed by repeated lesson blocks
// ("Lesson N: <title>", optional "Lesson Link: <url>", free text until the
// next marker or EOF).
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{}

	// Header: title is mandatory, link and instructor are optional but must
	// appear before the first lesson marker.
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read transcript: %w", err)
		}
		return nil, &ErrMalformedHeader{Line: ""}
	}
	first := strings.TrimSpace(scanner.Text())
	if !strings.HasPrefix(first, titlePrefix) {
		return nil, &ErrMalformedHeader{Line: first}
	}
	doc.Title = strings.TrimSpace(strings.TrimPrefix(first, titlePrefix))
	if doc.Title == "" {
		return nil, &ErrMalformedHeader{Line: first}
	}

	var (
		current *Lesson
		content strings.Builder
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(content.String())
		doc.Lessons = append(doc.Lessons, *current)
		current = nil
		content.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if m := lessonMarker.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("invalid lesson number in %q: %w", trimmed, err)
			}
			current = &Lesson{Number: number, Title: strings.TrimSpace(m[2])}
			continue
		}

		if current == nil {
			// Still in the header area.
			switch {
			case strings.HasPrefix(trimmed, linkPrefix):
				doc.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, linkPrefix))
			case strings.HasPrefix(trimmed, instructorPrefix):
				doc.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, instructorPrefix))
			}
			continue
		}

		if strings.HasPrefix(trimmed, lessonLinkPrefix) && current.Link == "" && current.Content == "" && content.Len() == 0 {
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, lessonLinkPrefix))
			continue
		}

		content.WriteString(line)
		content.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	flush()

	return doc, nil
}
