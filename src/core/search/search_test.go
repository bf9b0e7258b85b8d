package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"courserag/src/core/course"
	"courserag/src/storage/weaviate"
)

type storeCall struct {
	op        string
	className string
}

type fakeStore struct {
	mu           sync.Mutex
	calls        []storeCall
	added        map[string][]weaviate.VectorObject
	queryResults map[string][]weaviate.QueryResult
	queryErr     error
	lastConfig   weaviate.QueryConfig
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		added:        make(map[string][]weaviate.VectorObject),
		queryResults: make(map[string][]weaviate.QueryResult),
	}
}

func (s *fakeStore) EnsureSchema(ctx context.Context, className string, properties []*models.Property, vectorizer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{op: "ensure", className: className})
	return nil
}

func (s *fakeStore) BatchAddVectors(ctx context.Context, className string, objects []weaviate.VectorObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{op: "add", className: className})
	s.added[className] = append(s.added[className], objects...)
	return nil
}

func (s *fakeStore) DeleteByFilter(ctx context.Context, className string, where *filters.WhereBuilder) error {
	// Widen the window between delete and insert so an unserialized
	// concurrent upsert would interleave.
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{op: "delete", className: className})
	return nil
}

func (s *fakeStore) QueryVectors(ctx context.Context, className string, vector []float32, config weaviate.QueryConfig) ([]weaviate.QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, storeCall{op: "query", className: className})
	s.lastConfig = config
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.queryResults[className], nil
}

type fakeEmbedder struct {
	texts []string
	err   error
}

func (e *fakeEmbedder) GetEmbedding(ctx context.Context, model string, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return []float32{0.1, 0.2, 0.3}, nil
}

func testDocument() (*course.Document, []course.Chunk) {
	doc := &course.Document{
		Title:      "Intro to Testing",
		Instructor: "Jane Smith",
		Link:       "https://example.com/course",
		Lessons: []course.Lesson{
			{Number: 1, Title: "Basics", Content: "lesson one"},
		},
	}
	chunks := []course.Chunk{
		{Text: "chunk one", CourseTitle: doc.Title, LessonNumber: 1, ChunkIndex: 0},
		{Text: "chunk two", CourseTitle: doc.Title, LessonNumber: 1, ChunkIndex: 1},
	}
	return doc, chunks
}

func TestUpsertCourseOrdering(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	doc, chunks := testDocument()
	if err := index.UpsertCourse(context.Background(), doc, chunks); err != nil {
		t.Fatalf("UpsertCourse() error = %v", err)
	}

	want := []storeCall{
		{op: "delete", className: ClassCatalog},
		{op: "delete", className: ClassContent},
		{op: "add", className: ClassCatalog},
		{op: "add", className: ClassContent},
	}
	if len(store.calls) != len(want) {
		t.Fatalf("UpsertCourse() calls = %v", store.calls)
	}
	for i, w := range want {
		if store.calls[i] != w {
			t.Errorf("UpsertCourse() call %d = %v, want %v", i, store.calls[i], w)
		}
	}
}

func TestUpsertCourseProperties(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	doc, chunks := testDocument()
	if err := index.UpsertCourse(context.Background(), doc, chunks); err != nil {
		t.Fatalf("UpsertCourse() error = %v", err)
	}

	catalog := store.added[ClassCatalog]
	if len(catalog) != 1 {
		t.Fatalf("UpsertCourse() catalog objects = %d, want 1", len(catalog))
	}
	props := catalog[0].Properties
	if props["title"] != "Intro to Testing" || props["instructor"] != "Jane Smith" {
		t.Errorf("UpsertCourse() catalog properties = %v", props)
	}
	if props["lessonCount"] != 1 {
		t.Errorf("UpsertCourse() lessonCount = %v, want 1", props["lessonCount"])
	}
	if len(catalog[0].Vector) == 0 {
		t.Error("UpsertCourse() catalog object has no vector")
	}

	content := store.added[ClassContent]
	if len(content) != 2 {
		t.Fatalf("UpsertCourse() content objects = %d, want 2", len(content))
	}
	if content[0].Properties["content"] != "chunk one" || content[0].Properties["chunkIndex"] != 0 {
		t.Errorf("UpsertCourse() content properties = %v", content[0].Properties)
	}
}

func TestUpsertCourseEmbedFailure(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{err: errors.New("embedder offline")}, "nomic-embed-text", 0)

	doc, chunks := testDocument()
	if err := index.UpsertCourse(context.Background(), doc, chunks); err == nil {
		t.Fatal("UpsertCourse() error = nil, want embed failure")
	}

	if len(store.added[ClassCatalog]) != 0 || len(store.added[ClassContent]) != 0 {
		t.Error("UpsertCourse() stored objects after embed failure")
	}
}

func TestSearchContent(t *testing.T) {
	store := newFakeStore()
	store.queryResults[ClassContent] = []weaviate.QueryResult{
		{
			Certainty: 0.92,
			Properties: map[string]interface{}{
				"content":      "chunk text",
				"courseTitle":  "Intro to Testing",
				"lessonNumber": float64(3),
				"chunkIndex":   float64(0),
				"lessonLink":   "https://example.com/l3",
			},
		},
	}
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	matches, err := index.SearchContent(context.Background(), "how to test", Filter{}, 5)
	if err != nil {
		t.Fatalf("SearchContent() error = %v", err)
	}

	if len(matches) != 1 {
		t.Fatalf("SearchContent() matches = %d, want 1", len(matches))
	}
	m := matches[0]
	if m.Chunk.Text != "chunk text" || m.Chunk.CourseTitle != "Intro to Testing" {
		t.Errorf("SearchContent() chunk = %+v", m.Chunk)
	}
	if m.Chunk.LessonNumber != 3 {
		t.Errorf("SearchContent() lesson = %d, want 3", m.Chunk.LessonNumber)
	}
	if m.Certainty != 0.92 {
		t.Errorf("SearchContent() certainty = %v", m.Certainty)
	}

	if store.lastConfig.Limit != 5 {
		t.Errorf("SearchContent() limit = %d, want 5", store.lastConfig.Limit)
	}
	if store.lastConfig.Where != nil {
		t.Error("SearchContent() unfiltered query carries a where clause")
	}
}

func TestSearchContentFiltered(t *testing.T) {
	lesson := 2
	tests := []struct {
		name      string
		filter    Filter
		wantWhere bool
	}{
		{name: "no filter", filter: Filter{}, wantWhere: false},
		{name: "course only", filter: Filter{CourseTitle: "Intro"}, wantWhere: true},
		{name: "lesson only", filter: Filter{LessonNumber: &lesson}, wantWhere: true},
		{name: "both", filter: Filter{CourseTitle: "Intro", LessonNumber: &lesson}, wantWhere: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

			if _, err := index.SearchContent(context.Background(), "q", tt.filter, 5); err != nil {
				t.Fatalf("SearchContent() error = %v", err)
			}
			if got := store.lastConfig.Where != nil; got != tt.wantWhere {
				t.Errorf("SearchContent() where present = %v, want %v", got, tt.wantWhere)
			}
		})
	}
}

func TestSearchContentEmpty(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	matches, err := index.SearchContent(context.Background(), "nothing here", Filter{}, 5)
	if err != nil {
		t.Fatalf("SearchContent() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("SearchContent() matches = %d, want 0", len(matches))
	}
}

func TestSearchContentDefaultTopK(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	if _, err := index.SearchContent(context.Background(), "q", Filter{}, 0); err != nil {
		t.Fatalf("SearchContent() error = %v", err)
	}
	if store.lastConfig.Limit != DefaultTopK {
		t.Errorf("SearchContent() limit = %d, want %d", store.lastConfig.Limit, DefaultTopK)
	}
}

func TestResolveCourseTitle(t *testing.T) {
	tests := []struct {
		name             string
		results          []weaviate.QueryResult
		resolveCertainty float64
		want             string
		wantErr          error
	}{
		{
			name: "best match accepted",
			results: []weaviate.QueryResult{
				{Certainty: 0.4, Properties: map[string]interface{}{"title": "Intro to Testing"}},
			},
			want: "Intro to Testing",
		},
		{
			name:    "empty catalog",
			results: nil,
			wantErr: ErrCourseNotFound,
		},
		{
			name: "below certainty floor",
			results: []weaviate.QueryResult{
				{Certainty: 0.4, Properties: map[string]interface{}{"title": "Intro to Testing"}},
			},
			resolveCertainty: 0.7,
			wantErr:          ErrCourseNotFound,
		},
		{
			name: "above certainty floor",
			results: []weaviate.QueryResult{
				{Certainty: 0.9, Properties: map[string]interface{}{"title": "Intro to Testing"}},
			},
			resolveCertainty: 0.7,
			want:             "Intro to Testing",
		},
		{
			name: "missing title property",
			results: []weaviate.QueryResult{
				{Certainty: 0.9, Properties: map[string]interface{}{}},
			},
			wantErr: ErrCourseNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.queryResults[ClassCatalog] = tt.results
			index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", tt.resolveCertainty)

			got, err := index.ResolveCourseTitle(context.Background(), "testing")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ResolveCourseTitle() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCourseTitle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveCourseTitle() = %q, want %q", got, tt.want)
			}
			if store.lastConfig.Limit != 1 {
				t.Errorf("ResolveCourseTitle() limit = %d, want 1", store.lastConfig.Limit)
			}
		})
	}
}

func TestUpsertCourseSerializedPerTitle(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	doc, chunks := testDocument()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := index.UpsertCourse(context.Background(), doc, chunks); err != nil {
				t.Errorf("UpsertCourse() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// Each upsert must complete its delete/insert sequence before the next
	// one for the same title starts.
	group := []storeCall{
		{op: "delete", className: ClassCatalog},
		{op: "delete", className: ClassContent},
		{op: "add", className: ClassCatalog},
		{op: "add", className: ClassContent},
	}
	if len(store.calls) != 2*len(group) {
		t.Fatalf("UpsertCourse() calls = %v", store.calls)
	}
	for i, call := range store.calls {
		if want := group[i%len(group)]; call != want {
			t.Errorf("UpsertCourse() call %d = %v, want %v", i, call, want)
		}
	}
}

func TestGetCourseOutline(t *testing.T) {
	store := newFakeStore()
	store.queryResults[ClassCatalog] = []weaviate.QueryResult{
		{
			Certainty: 0.9,
			Properties: map[string]interface{}{
				"title":       "Intro to Testing",
				"link":        "https://example.com/course",
				"lessonsJson": `[{"number":0,"title":"Welcome"},{"number":1,"title":"Fundamentals","link":"https://example.com/l1"}]`,
			},
		},
	}
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	outline, err := index.GetCourseOutline(context.Background(), "testing")
	if err != nil {
		t.Fatalf("GetCourseOutline() error = %v", err)
	}

	if outline.Title != "Intro to Testing" || outline.Link != "https://example.com/course" {
		t.Errorf("GetCourseOutline() = %+v", outline)
	}
	if len(outline.Lessons) != 2 {
		t.Fatalf("GetCourseOutline() lessons = %d, want 2", len(outline.Lessons))
	}
	if outline.Lessons[1].Number != 1 || outline.Lessons[1].Title != "Fundamentals" {
		t.Errorf("GetCourseOutline() lesson 1 = %+v", outline.Lessons[1])
	}
	if outline.Lessons[1].Link != "https://example.com/l1" {
		t.Errorf("GetCourseOutline() lesson 1 link = %q", outline.Lessons[1].Link)
	}

	if store.lastConfig.Limit != 1 {
		t.Errorf("GetCourseOutline() limit = %d, want 1", store.lastConfig.Limit)
	}
}

func TestGetCourseOutlineNotFound(t *testing.T) {
	tests := []struct {
		name             string
		results          []weaviate.QueryResult
		resolveCertainty float64
	}{
		{name: "empty catalog", results: nil},
		{
			name: "below certainty floor",
			results: []weaviate.QueryResult{
				{Certainty: 0.4, Properties: map[string]interface{}{"title": "Intro to Testing"}},
			},
			resolveCertainty: 0.7,
		},
		{
			name: "missing title property",
			results: []weaviate.QueryResult{
				{Certainty: 0.9, Properties: map[string]interface{}{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.queryResults[ClassCatalog] = tt.results
			index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", tt.resolveCertainty)

			if _, err := index.GetCourseOutline(context.Background(), "testing"); !errors.Is(err, ErrCourseNotFound) {
				t.Errorf("GetCourseOutline() error = %v, want ErrCourseNotFound", err)
			}
		})
	}
}

func TestGetCourseOutlineBadJSON(t *testing.T) {
	store := newFakeStore()
	store.queryResults[ClassCatalog] = []weaviate.QueryResult{
		{
			Certainty: 0.9,
			Properties: map[string]interface{}{
				"title":       "Intro to Testing",
				"lessonsJson": "{not json",
			},
		},
	}
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	if _, err := index.GetCourseOutline(context.Background(), "testing"); err == nil {
		t.Fatal("GetCourseOutline() error = nil, want decode failure")
	}
}

func TestEnsureSchemas(t *testing.T) {
	store := newFakeStore()
	index := NewIndex(store, &fakeEmbedder{}, "nomic-embed-text", 0)

	if err := index.EnsureSchemas(context.Background()); err != nil {
		t.Fatalf("EnsureSchemas() error = %v", err)
	}

	var classes []string
	for _, call := range store.calls {
		if call.op == "ensure" {
			classes = append(classes, call.className)
		}
	}
	want := fmt.Sprintf("%s,%s", ClassCatalog, ClassContent)
	if got := fmt.Sprintf("%s,%s", classes[0], classes[1]); len(classes) != 2 || got != want {
		t.Errorf("EnsureSchemas() classes = %v", classes)
	}
}
