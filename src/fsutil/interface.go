package fsutil

import "io"

// FileStore provides an interface for transcript file access, so ingestion
// can be tested without touching the real filesystem.
type FileStore interface {
	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// ReadFileAsStream opens a file and returns a reader
	ReadFileAsStream(path string) (io.ReadCloser, error)

	// ListFiles returns the names of regular files in a directory carrying
	// the given extension, in directory order
	ListFiles(dir, ext string) ([]string, error)
}
