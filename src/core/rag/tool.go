package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"

	"courserag/src/core/search"
)

// Result is what a tool hands back to the orchestrator: the text fed to the
// model plus the source descriptors used for attribution. Returning sources
// directly keeps the contract functional; nothing leaks between calls.
type Result struct {
	Content string
	Sources []string
}

// Tool is a capability the generation model may invoke by name.
type Tool interface {
	Definition() api.Tool
	Execute(ctx context.Context, args api.ToolCallFunctionArguments) (*Result, error)
}

// Registry holds the tools offered to the model for a query.
type Registry struct {
	tools []Tool
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Definition().Function.Name] = t
	}
	return r
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) Definitions() []api.Tool {
	defs := make([]api.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

const SearchToolName = "search_course_content"

// CourseSearcher is the slice of the search index the tool depends on.
type CourseSearcher interface {
	SearchContent(ctx context.Context, query string, filter search.Filter, topK int) ([]search.ContentMatch, error)
	ResolveCourseTitle(ctx context.Context, name string) (string, error)
}

// SearchTool exposes course-content retrieval to the model. A fuzzy course
// name is resolved to a canonical title before the filtered search runs.
type SearchTool struct {
	index CourseSearcher
	topK  int
}

func NewSearchTool(index CourseSearcher, topK int) *SearchTool {
	if topK <= 0 {
		topK = search.DefaultTopK
	}
	return &SearchTool{
		index: index,
		topK:  topK,
	}
}

func (t *SearchTool) Definition() api.Tool {
	tool := api.Tool{
		Type: "function",
		Function: api.ToolFunction{
			Name:        SearchToolName,
			Description: "Search course materials with smart course name matching and lesson filtering",
		},
	}
	tool.Function.Parameters.Type = "object"
	tool.Function.Parameters.Required = []string{"query"}
	tool.Function.Parameters.Properties = map[string]api.ToolProperty{
		"query": {
			Type:        api.PropertyType{"string"},
			Description: "What to search for in the course content",
		},
		"course_name": {
			Type:        api.PropertyType{"string"},
			Description: "Course title, a partial name is enough (e.g. 'MCP', 'Introduction')",
		},
		"lesson_number": {
			Type:        api.PropertyType{"integer"},
			Description: "Specific lesson number to search within (e.g. 1, 2, 3)",
		},
	}
	return tool
}

// Execute resolves the optional course name, runs the filtered content
// search and formats ranked matches as labeled blocks. Not-found and empty
// results come back as readable text so the model can relay them.
func (t *SearchTool) Execute(ctx context.Context, args api.ToolCallFunctionArguments) (*Result, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return &Result{Content: "The 'query' parameter is required to search course content."}, nil
	}

	filter := search.Filter{}

	if name, ok := args["course_name"].(string); ok && name != "" {
		title, err := t.index.ResolveCourseTitle(ctx, name)
		if err != nil {
			if errors.Is(err, search.ErrCourseNotFound) {
				return &Result{Content: fmt.Sprintf("No course found matching '%s'", name)}, nil
			}
			return nil, err
		}
		filter.CourseTitle = title
	}

	if raw, ok := args["lesson_number"]; ok {
		if n, ok := toolArgInt(raw); ok {
			filter.LessonNumber = &n
		}
	}

	matches, err := t.index.SearchContent(ctx, query, filter, t.topK)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		return &Result{Content: emptyResultText(filter)}, nil
	}

	blocks := make([]string, 0, len(matches))
	sources := make([]string, 0, len(matches))
	for _, match := range matches {
		label := fmt.Sprintf("%s - Lesson %d", match.Chunk.CourseTitle, match.Chunk.LessonNumber)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, match.Chunk.Text))

		source := label
		if match.Chunk.LessonLink != "" {
			source = fmt.Sprintf("%s (%s)", label, match.Chunk.LessonLink)
		}
		sources = append(sources, source)
	}

	return &Result{
		Content: strings.Join(blocks, "\n\n"),
		Sources: sources,
	}, nil
}

func emptyResultText(filter search.Filter) string {
	msg := "No relevant content found"
	if filter.CourseTitle != "" {
		msg += fmt.Sprintf(" in course '%s'", filter.CourseTitle)
	}
	if filter.LessonNumber != nil {
		msg += fmt.Sprintf(" in lesson %d", *filter.LessonNumber)
	}
	return msg + "."
}

// toolArgInt normalizes a JSON tool argument to an int. Models send numbers
// as float64, some send quoted integers.
func toolArgInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		var parsed int
		if _, err := fmt.Sscanf(n, "%d", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
