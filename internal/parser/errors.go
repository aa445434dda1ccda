package parser

import (
	"errors"
	"fmt"
)

var ErrUnsupportedFormat = errors.New("unsupported file type")

// ErrSampleSkipped marks a recovered drop of a whole sample or of one field.
var ErrSampleSkipped = errors.New("sample skipped")

var ErrExcludedSample = errors.New("sample carries an exclusion marker")

// MalformedInputError aborts an import: the document could not be parsed or a
// required section is missing.
type MalformedInputError struct {
	Section string
	Err     error
}

func (e *MalformedInputError) Error() string {
	if e.Section == "" {
		return fmt.Sprintf("malformed input: %v", e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("malformed input: missing %s", e.Section)
	}
	return fmt.Sprintf("malformed input: %s: %v", e.Section, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func malformed(section string, err error) error {
	return &MalformedInputError{Section: section, Err: err}
}

// Skip records one recovered drop. Field is empty when the whole sample was dropped.
type Skip struct {
	Index  int
	Field  string
	Reason error
}

func (s Skip) Error() string {
	if s.Field == "" {
		return fmt.Sprintf("sample %d: %v", s.Index, s.Reason)
	}
	return fmt.Sprintf("sample %d field %s: %v", s.Index, s.Field, s.Reason)
}

func (s Skip) Unwrap() []error { return []error{ErrSampleSkipped, s.Reason} }
