package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"courserag/src/core/search"
)

const OutlineToolName = "get_course_outline"

// CourseOutlineProvider is the catalog lookup the outline tool depends on.
type CourseOutlineProvider interface {
	GetCourseOutline(ctx context.Context, name string) (*search.CourseOutline, error)
}

// OutlineTool exposes course structure to the model: title, course link and
// the complete lesson list. Like the search tool it resolves a fuzzy course
// name first.
type OutlineTool struct {
	catalog CourseOutlineProvider
}

func NewOutlineTool(catalog CourseOutlineProvider) *OutlineTool {
	return &OutlineTool{catalog: catalog}
}

func (t *OutlineTool) Definition() api.Tool {
	tool := api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        OutlineToolName,
			Description: "Get the complete outline of a course: title, course link and every lesson with its number and title",
		},
	}
	tool.Function.Parameters.Type = "object"
	tool.Function.Parameters.Required = []string{"course_title"}
	tool.Function.Parameters.Properties = map[string]api.ToolProperty{
		"course_title": {
			Type:        api.PropertyType{"string"},
			Description: "Course title, a partial name is enough (e.g. 'MCP', 'Introduction')",
		},
	}
	return tool
}

// Execute resolves the course and formats its outline as readable text. An
// unknown course comes back as text, not an error, so the model can relay it.
func (t *OutlineTool) Execute(ctx context.Context, args api.ToolCallFunctionArguments) (*Result, error) {
	name, _ := args["course_title"].(string)
	if name == "" {
		return &Result{Content: "The 'course_title' parameter is required to get a course outline."}, nil
	}

	outline, err := t.catalog.GetCourseOutline(ctx, name)
	if err != nil {
		if errors.Is(err, search.ErrCourseNotFound) {
			return &Result{Content: fmt.Sprintf("No course found matching '%s'", name)}, nil
		}
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", outline.Title)
	if outline.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", outline.Link)
	}
	fmt.Fprintf(&b, "Lessons (%d):\n", len(outline.Lessons))
	for _, lesson := range outline.Lessons {
		fmt.Fprintf(&b, "Lesson %d: %s\n", lesson.Number, lesson.Title)
	}

	source := outline.Title
	if outline.Link != "" {
		source = fmt.Sprintf("%s (%s)", outline.Title, outline.Link)
	}

	return &Result{
		Content: strings.TrimRight(b.String(), "\n"),
		Sources: []string{source},
	}, nil
}
