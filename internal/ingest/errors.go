package ingest

import (
	"errors"
	"fmt"
)

// ErrIngest is returned (via errors.Is) for every file that cannot be turned
// into a dataset.
var ErrIngest = errors.New("ingest")

// Error variables for ingestion.
var (
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrEmptySheet        = errors.New("worksheet is empty")
	ErrNoSheet           = errors.New("no worksheet found")
	ErrAborted           = errors.New("entry aborted")
)

// Error describes why a file could not be ingested.
// It unwraps to both [ErrIngest] and the underlying cause.
type Error struct {
	File   string // File is the path or name that was read.
	Row    int    // Row is the 1-based sheet row, or 0 when not row specific.
	Column string // Column is the header of the offending cell, if any.
	Err    error  // Err is the underlying cause.
}

func (e *Error) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("%s: row %d, column %q: %v", e.File, e.Row, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("%s: row %d: %v", e.File, e.Row, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	return []error{ErrIngest, e.Err}
}
