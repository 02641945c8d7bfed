package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyFile is the cause recorded when a source file has no data rows.
var ErrEmptyFile = errors.New("file is empty")

// ErrMissingColumn is the cause recorded when a source file lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// DirectoryNotFoundError is returned when no candidate directory holds the reference file.
type DirectoryNotFoundError struct {
	Candidates []string
	Files      []string
}

func (e *DirectoryNotFoundError) Error() string {
	return fmt.Sprintf("no data directory found: tried [%s] for files [%s]",
		strings.Join(e.Candidates, ", "), strings.Join(e.Files, ", "))
}

// FileProcessingError is returned when a source file cannot be read, is empty,
// or lacks a required column. Column is set only for the missing-column case.
type FileProcessingError struct {
	File   string
	Path   string
	Column string
	Err    error
}

func (e *FileProcessingError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("file processing error: %s: %v %q", e.File, e.Err, e.Column)
	}
	return fmt.Sprintf("file processing error: %s: %v", e.File, e.Err)
}

func (e *FileProcessingError) Unwrap() error {
	return e.Err
}

// CountryMismatchError is returned when the combined dataset's country set
// differs from the expected one.
type CountryMismatchError struct {
	Loaded   []string
	Expected []string
}

func (e *CountryMismatchError) Error() string {
	return fmt.Sprintf("country mismatch: loaded [%s], expected [%s]",
		strings.Join(e.Loaded, ", "), strings.Join(e.Expected, ", "))
}

// ErrorKind returns a stable label for a load error, used in metrics and API responses.
func ErrorKind(err error) string {
	var dirErr *DirectoryNotFoundError
	var fileErr *FileProcessingError
	var countryErr *CountryMismatchError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dirErr):
		return "directory_not_found"
	case errors.As(err, &fileErr):
		return "file_processing"
	case errors.As(err, &countryErr):
		return "country_mismatch"
	default:
		return "unknown"
	}
}
