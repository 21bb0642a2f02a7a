package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors of the retrieval engine. Typed errors below match them via errors.Is.
var (
	// ErrSchema indicates required dataset columns are missing.
	ErrSchema = errors.New("dataset schema error")

	// ErrDataLoad indicates the dataset is unreadable or malformed.
	ErrDataLoad = errors.New("dataset load error")

	// ErrCacheMiss indicates no cache entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheCorrupt indicates a cache entry exists but cannot be used.
	ErrCacheCorrupt = errors.New("cache entry corrupt")

	// ErrEmbeddingModel indicates the embedding model failed to load or to encode.
	ErrEmbeddingModel = errors.New("embedding model error")
)

// SchemaError lists the required columns absent from a dataset header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// DataLoadError describes why a dataset could not be loaded.
// Row is the 1-based data row, or 0 when the failure is not row specific.
type DataLoadError struct {
	Path string
	Row  int
	Err  error
}

func (e *DataLoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load %s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }
