package course_test

import (
	"errors"
	"strings"
	"testing"

	"courserag/src/core/course"
)

const sampleTranscript = `Course Title: Intro to Testing
Course Link: https://example.com/course
Course Instructor: Jane Smith

Lesson 0: Welcome
Lesson Link: https://example.com/lesson0
Welcome to the course.
This lesson introduces the topic.

Lesson 1: Fundamentals
Lesson Link: https://example.com/lesson1
Testing fundamentals are covered here.
`

func TestParse(t *testing.T) {
	doc, err := course.Parse(strings.NewReader(sampleTranscript))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if doc.Title != "Intro to Testing" {
		t.Errorf("Parse() title = %q, want %q", doc.Title, "Intro to Testing")
	}
	if doc.Link != "https://example.com/course" {
		t.Errorf("Parse() link = %q, want %q", doc.Link, "https://example.com/course")
	}
	if doc.Instructor != "Jane Smith" {
		t.Errorf("Parse() instructor = %q, want %q", doc.Instructor, "Jane Smith")
	}

	if len(doc.Lessons) != 2 {
		t.Fatalf("Parse() lessons = %d, want 2", len(doc.Lessons))
	}

	first := doc.Lessons[0]
	if first.Number != 0 || first.Title != "Welcome" {
		t.Errorf("Parse() lesson 0 = %d %q, want 0 %q", first.Number, first.Title, "Welcome")
	}
	if first.Link != "https://example.com/lesson0" {
		t.Errorf("Parse() lesson 0 link = %q", first.Link)
	}
	if !strings.Contains(first.Content, "Welcome to the course.") {
		t.Errorf("Parse() lesson 0 content missing text: %q", first.Content)
	}
	if strings.Contains(first.Content, "Lesson Link:") {
		t.Errorf("Parse() lesson 0 content contains link line: %q", first.Content)
	}

	second := doc.Lessons[1]
	if second.Number != 1 || second.Title != "Fundamentals" {
		t.Errorf("Parse() lesson 1 = %d %q, want 1 %q", second.Number, second.Title, "Fundamentals")
	}
}

func TestParseMalformedHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "missing title prefix", input: "Some random text\nmore text\n"},
		{name: "empty title", input: "Course Title:\nCourse Link: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := course.Parse(strings.NewReader(tt.input))
			var headerErr *course.ErrMalformedHeader
			if !errors.As(err, &headerErr) {
				t.Errorf("Parse() error = %v, want ErrMalformedHeader", err)
			}
		})
	}
}

func TestParseLessonWithoutLink(t *testing.T) {
	input := "Course Title: Minimal\nLesson 1: Only Lesson\nSome content here.\n"

	doc, err := course.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(doc.Lessons) != 1 {
		t.Fatalf("Parse() lessons = %d, want 1", len(doc.Lessons))
	}
	if doc.Lessons[0].Link != "" {
		t.Errorf("Parse() lesson link = %q, want empty", doc.Lessons[0].Link)
	}
	if doc.Lessons[0].Content != "Some content here." {
		t.Errorf("Parse() lesson content = %q", doc.Lessons[0].Content)
	}
}

func TestParseHeaderOnly(t *testing.T) {
	input := "Course Title: No Lessons Yet\nCourse Instructor: Someone\n"

	doc, err := course.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Lessons) != 0 {
		t.Errorf("Parse() lessons = %d, want 0", len(doc.Lessons))
	}
}
