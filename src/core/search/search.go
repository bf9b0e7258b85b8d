package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"courserag/src/core/course"
	"courserag/src/storage/weaviate"
)

const (
	// ClassCatalog holds one record per course, used only for fuzzy name
	// resolution and catalog statistics.
	ClassCatalog = "CourseCatalog"
	// ClassContent holds the embedded lesson chunks.
	ClassContent = "CourseChunk"

	DefaultTopK = 5
)

var ErrCourseNotFound = errors.New("course not found")

// Embedder produces a fixed-length vector for a text. Satisfied by the
// ollama client.
type Embedder interface {
	GetEmbedding(ctx context.Context, model string, text string) ([]float32, error)
}

// VectorStore is the subset of the weaviate SDK the index needs.
type VectorStore interface {
	EnsureSchema(ctx context.Context, className string, properties []*models.Property, vectorizer string) error
	BatchAddVectors(ctx context.Context, className string, objects []weaviate.VectorObject) error
	DeleteByFilter(ctx context.Context, className string, where *filters.WhereBuilder) error
	QueryVectors(ctx context.Context, className string, vector []float32, config weaviate.QueryConfig) ([]weaviate.QueryResult, error)
}

// Filter restricts a content search. Zero value means corpus-wide search.
// Both conditions combine with AND semantics.
type Filter struct {
	CourseTitle  string
	LessonNumber *int
}

// ContentMatch is one ranked content search result.
type ContentMatch struct {
	Chunk     course.Chunk
	Certainty float64
}

// CourseOutline is the structural view of one course: title, link and the
// full lesson table, without lesson content.
type CourseOutline struct {
	Title   string
	Link    string
	Lessons []course.Lesson
}

// Index maintains the two similarity-search collections. Reads may run
// concurrently; writes for the same course title are serialized so two
// ingestions of one course never interleave their delete and insert steps.
// Reads do not take the title lock and can observe an in-progress replace.
type Index struct {
	store          VectorStore
	embedder       Embedder
	embeddingModel string

	// Minimum certainty for accepting a catalog match; zero accepts the
	// best match unconditionally.
	resolveCertainty float64

	mu         sync.Mutex
	titleLocks map[string]*sync.Mutex
}

func NewIndex(store VectorStore, embedder Embedder, embeddingModel string, resolveCertainty float64) *Index {
	return &Index{
		store:            store,
		embedder:         embedder,
		embeddingModel:   embeddingModel,
		resolveCertainty: resolveCertainty,
		titleLocks:       make(map[string]*sync.Mutex),
	}
}

// EnsureSchemas creates both collections if missing. Vectorizer is "none":
// all vectors come from the embedder.
func (i *Index) EnsureSchemas(ctx context.Context) error {
	catalogProps := []*models.Property{
		{Name: "title", DataType: []string{"text"}},
		{Name: "instructor", DataType: []string{"text"}},
		{Name: "link", DataType: []string{"text"}},
		{Name: "lessonCount", DataType: []string{"int"}},
		{Name: "lessonsJson", DataType: []string{"text"}},
	}
	if err := i.store.EnsureSchema(ctx, ClassCatalog, catalogProps, "none"); err != nil {
		return fmt.Errorf("failed to ensure catalog schema: %w", err)
	}

	contentProps := []*models.Property{
		{Name: "content", DataType: []string{"text"}},
		{Name: "courseTitle", DataType: []string{"text"}},
		{Name: "lessonNumber", DataType: []string{"int"}},
		{Name: "chunkIndex", DataType: []string{"int"}},
		{Name: "lessonLink", DataType: []string{"text"}},
	}
	if err := i.store.EnsureSchema(ctx, ClassContent, contentProps, "none"); err != nil {
		return fmt.Errorf("failed to ensure content schema: %w", err)
	}

	return nil
}

// UpsertCourse replaces the catalog record and every content chunk for the
// document's title. Delete-then-insert keyed by title, so re-ingesting a
// course never leaves stale chunks behind.
func (i *Index) UpsertCourse(ctx context.Context, doc *course.Document, chunks []course.Chunk) error {
	lock := i.titleLock(doc.Title)
	lock.Lock()
	defer lock.Unlock()

	byTitle := filters.Where().
		WithPath([]string{"title"}).
		WithOperator(filters.Equal).
		WithValueText(doc.Title)
	if err := i.store.DeleteByFilter(ctx, ClassCatalog, byTitle); err != nil {
		return fmt.Errorf("failed to delete stale catalog record: %w", err)
	}

	byCourseTitle := filters.Where().
		WithPath([]string{"courseTitle"}).
		WithOperator(filters.Equal).
		WithValueText(doc.Title)
	if err := i.store.DeleteByFilter(ctx, ClassContent, byCourseTitle); err != nil {
		return fmt.Errorf("failed to delete stale content chunks: %w", err)
	}

	// Catalog record first: a content chunk must never exist without its
	// catalog record.
	titleVector, err := i.embedder.GetEmbedding(ctx, i.embeddingModel, doc.Title)
	if err != nil {
		return fmt.Errorf("failed to embed course title: %w", err)
	}

	lessonsJSON, err := json.Marshal(doc.Lessons)
	if err != nil {
		return fmt.Errorf("failed to marshal lessons: %w", err)
	}

	catalogObj := weaviate.VectorObject{
		Vector: titleVector,
		Properties: map[string]interface{}{
			"title":       doc.Title,
			"instructor":  doc.Instructor,
			"link":        doc.Link,
			"lessonCount": len(doc.Lessons),
			"lessonsJson": string(lessonsJSON),
		},
	}
	if err := i.store.BatchAddVectors(ctx, ClassCatalog, []weaviate.VectorObject{catalogObj}); err != nil {
		return fmt.Errorf("failed to store catalog record: %w", err)
	}

	objects := make([]weaviate.VectorObject, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := i.embedder.GetEmbedding(ctx, i.embeddingModel, chunk.Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of lesson %d: %w", chunk.ChunkIndex, chunk.LessonNumber, err)
		}
		objects = append(objects, weaviate.VectorObject{
			Vector: vector,
			Properties: map[string]interface{}{
				"content":      chunk.Text,
				"courseTitle":  chunk.CourseTitle,
				"lessonNumber": chunk.LessonNumber,
				"chunkIndex":   chunk.ChunkIndex,
				"lessonLink":   chunk.LessonLink,
			},
		})
	}

	if err := i.store.BatchAddVectors(ctx, ClassContent, objects); err != nil {
		return fmt.Errorf("failed to store content chunks: %w", err)
	}

	return nil
}

// SearchContent embeds the query and returns the topK closest chunks under
// the filter, best match first. No matches is an empty slice, not an error.
func (i *Index) SearchContent(ctx context.Context, query string, filter Filter, topK int) ([]ContentMatch, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := i.embedder.GetEmbedding(ctx, i.embeddingModel, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	config := weaviate.QueryConfig{
		Fields: []string{"content", "courseTitle", "lessonNumber", "chunkIndex", "lessonLink"},
		Limit:  topK,
		Where:  contentWhere(filter),
	}

	results, err := i.store.QueryVectors(ctx, ClassContent, vector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to search content: %w", err)
	}

	matches := make([]ContentMatch, 0, len(results))
	for _, result := range results {
		chunk := course.Chunk{}
		if v, ok := result.Properties["content"].(string); ok {
			chunk.Text = v
		}
		if v, ok := result.Properties["courseTitle"].(string); ok {
			chunk.CourseTitle = v
		}
		if v, ok := result.Properties["lessonNumber"].(float64); ok {
			chunk.LessonNumber = int(v)
		}
		if v, ok := result.Properties["chunkIndex"].(float64); ok {
			chunk.ChunkIndex = int(v)
		}
		if v, ok := result.Properties["lessonLink"].(string); ok {
			chunk.LessonLink = v
		}
		matches = append(matches, ContentMatch{Chunk: chunk, Certainty: result.Certainty})
	}

	return matches, nil
}

// ResolveCourseTitle maps a user-typed course name to the canonical title via
// a single nearest-neighbor lookup in the catalog collection.
func (i *Index) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	vector, err := i.embedder.GetEmbedding(ctx, i.embeddingModel, name)
	if err != nil {
		return "", fmt.Errorf("failed to embed course name: %w", err)
	}

	results, err := i.store.QueryVectors(ctx, ClassCatalog, vector, weaviate.QueryConfig{
		Fields: []string{"title"},
		Limit:  1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to query catalog: %w", err)
	}

	if len(results) == 0 {
		return "", ErrCourseNotFound
	}
	if i.resolveCertainty > 0 && results[0].Certainty < i.resolveCertainty {
		return "", ErrCourseNotFound
	}

	title, ok := results[0].Properties["title"].(string)
	if !ok || title == "" {
		return "", ErrCourseNotFound
	}

	return title, nil
}

// GetCourseOutline resolves a fuzzy course name and returns the stored
// outline from the catalog record. The lesson table is read back from the
// lessonsJson property written at ingestion time.
func (i *Index) GetCourseOutline(ctx context.Context, name string) (*CourseOutline, error) {
	vector, err := i.embedder.GetEmbedding(ctx, i.embeddingModel, name)
	if err != nil {
		return nil, fmt.Errorf("failed to embed course name: %w", err)
	}

	results, err := i.store.QueryVectors(ctx, ClassCatalog, vector, weaviate.QueryConfig{
		Fields: []string{"title", "link", "lessonsJson"},
		Limit:  1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrCourseNotFound
	}
	if i.resolveCertainty > 0 && results[0].Certainty < i.resolveCertainty {
		return nil, ErrCourseNotFound
	}

	title, ok := results[0].Properties["title"].(string)
	if !ok || title == "" {
		return nil, ErrCourseNotFound
	}

	outline := &CourseOutline{Title: title}
	if v, ok := results[0].Properties["link"].(string); ok {
		outline.Link = v
	}
	if raw, ok := results[0].Properties["lessonsJson"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &outline.Lessons); err != nil {
			return nil, fmt.Errorf("failed to decode lesson table for %q: %w", title, err)
		}
	}

	return outline, nil
}

func (i *Index) titleLock(title string) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()

	lock, ok := i.titleLocks[title]
	if !ok {
		lock = &sync.Mutex{}
		i.titleLocks[title] = lock
	}
	return lock
}

func contentWhere(filter Filter) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder

	if filter.CourseTitle != "" {
		operands = append(operands, filters.Where().
			WithPath([]string{"courseTitle"}).
			WithOperator(filters.Equal).
			WithValueText(filter.CourseTitle))
	}
	if filter.LessonNumber != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"lessonNumber"}).
			WithOperator(filters.Equal).
			WithValueInt(int64(*filter.LessonNumber)))
	}

	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}
