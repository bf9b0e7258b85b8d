package course

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Chunker splits lesson content into overlapping, sentence-respecting windows
// sized for embedding. Splitting is deterministic: the same document always
// yields the same chunk sequence.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Split chunks every lesson of the document. Each window is prefixed with
// "Course {title} Lesson {number} content: " before embedding so retrieval
// results carry provenance.
func (c *Chunker) Split(doc *Document) ([]Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.chunkSize),
		textsplitter.WithChunkOverlap(c.chunkOverlap),
		// Prefer paragraph and sentence boundaries; fall back to a hard
		// split only when no boundary exists within the window.
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}),
	)

	var chunks []Chunk
	for _, lesson := range doc.Lessons {
		content := strings.TrimSpace(lesson.Content)
		if content == "" {
			continue
		}

		parts, err := splitter.SplitText(content)
		if err != nil {
			return nil, fmt.Errorf("failed to split lesson %d of %q: %w", lesson.Number, doc.Title, err)
		}

		prefix := chunkPrefix(doc.Title, lesson.Number)
		for i, part := range parts {
			chunks = append(chunks, Chunk{
				Text:         prefix + part,
				CourseTitle:  doc.Title,
				LessonNumber: lesson.Number,
				LessonLink:   lesson.Link,
				ChunkIndex:   i,
			})
		}
	}

	return chunks, nil
}

func chunkPrefix(title string, lessonNumber int) string {
	return fmt.Sprintf("Course %s Lesson %d content: ", title, lessonNumber)
}
