package parser

import "fmt"

// ValidationError rejects an upload whose columns or values are wrong.
// Nothing from a rejected upload is ever stored.
type ValidationError struct {
	Message string
	Columns []string // the offending columns, display form
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UnreadableFileError means the upload could not be read as CSV at all.
type UnreadableFileError struct {
	Err error
}

func (e *UnreadableFileError) Error() string {
	return fmt.Sprintf("unreadable CSV: %v", e.Err)
}

func (e *UnreadableFileError) Unwrap() error {
	return e.Err
}
