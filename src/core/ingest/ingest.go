package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"courserag/src/core/course"
	"courserag/src/infrastructure/log"
	"courserag/src/storage/minioctrl"
	"courserag/src/storage/postgres/coursectrl"
)

// Indexer writes a parsed course into the vector collections.
type Indexer interface {
	UpsertCourse(ctx context.Context, doc *course.Document, chunks []course.Chunk) error
}

// CatalogStore persists the relational catalog row per course.
type CatalogStore interface {
	Upsert(ctx context.Context, record *coursectrl.CourseRecord) error
	GetByTitle(ctx context.Context, title string) (*coursectrl.CourseRecord, error)
}

// Archive keeps the raw transcript bytes. Optional; nil disables archiving.
type Archive interface {
	EnsureBucketExists(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, objectName string, data []byte) error
}

// Result describes what happened to one transcript file.
type Result struct {
	Title   string
	Chunks  int
	Skipped bool
}

// Service turns raw transcript files into indexed courses: parse, archive,
// catalog row, chunk, embed, vector upsert.
type Service struct {
	chunker *course.Chunker
	index   Indexer
	catalog CatalogStore
	archive Archive
}

func NewService(chunker *course.Chunker, index Indexer, catalog CatalogStore, archive Archive) *Service {
	return &Service{
		chunker: chunker,
		index:   index,
		catalog: catalog,
		archive: archive,
	}
}

// IngestFile processes a single transcript. Unless replace is set, a title
// already present in the catalog is skipped so repeated startup ingestion
// only adds new courses. A parse failure is the caller's signal to skip this
// file and continue with the rest of the corpus.
func (s *Service) IngestFile(ctx context.Context, filename string, data []byte, replace bool) (*Result, error) {
	doc, err := course.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	if !replace {
		existing, err := s.catalog.GetByTitle(ctx, doc.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to check catalog for %q: %w", doc.Title, err)
		}
		if existing != nil {
			return &Result{Title: doc.Title, Skipped: true}, nil
		}
	}

	if s.archive != nil {
		if err := s.archive.EnsureBucketExists(ctx, minioctrl.TranscriptsBucket); err != nil {
			return nil, fmt.Errorf("failed to ensure transcript bucket: %w", err)
		}
		if err := s.archive.PutObject(ctx, minioctrl.TranscriptsBucket, filename, data); err != nil {
			return nil, fmt.Errorf("failed to archive transcript: %w", err)
		}
	}

	chunks, err := s.chunker.Split(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk %q: %w", doc.Title, err)
	}

	if err := s.index.UpsertCourse(ctx, doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to index %q: %w", doc.Title, err)
	}

	lessonsJSON, err := json.Marshal(doc.Lessons)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lessons for %q: %w", doc.Title, err)
	}
	record := &coursectrl.CourseRecord{
		Title:       doc.Title,
		Instructor:  doc.Instructor,
		Link:        doc.Link,
		LessonCount: len(doc.Lessons),
		LessonsJSON: string(lessonsJSON),
	}
	if err := s.catalog.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save catalog row for %q: %w", doc.Title, err)
	}

	log.Info("ingested course", "title", doc.Title, "lessons", len(doc.Lessons), "chunks", len(chunks))

	return &Result{Title: doc.Title, Chunks: len(chunks)}, nil
}
