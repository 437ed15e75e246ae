package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the upload caller. Everything else in the
// pipeline is recovered to a degraded path or dropped with a log line.
var (
	// ErrUnsupportedFormat means the file is neither delimited text nor a
	// page-image-bearing document.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoTransactionsExtracted means every page of a document yielded
	// zero records.
	ErrNoTransactionsExtracted = errors.New("no transactions extracted from document")

	// ErrDocumentRender means a page could not be rasterized; this is fatal
	// for the whole document.
	ErrDocumentRender = errors.New("failed to render document")

	// ErrMissingCredential means the vision path cannot run at all.
	ErrMissingCredential = errors.New("completion service credential is not configured")
)

// IngestError carries the pipeline stage and filename alongside the cause.
type IngestError struct {
	Stage    string
	Filename string
	Cause    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("[%s] ingesting %q: %v", e.Stage, e.Filename, e.Cause)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}
