package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedStrategy = errors.New("unsupported strategy")
	ErrMissingConditions   = errors.New("condition catalog incomplete, re-run initialization")
	ErrMissingTemplates    = errors.New("template catalog incomplete, re-run initialization")
)

// ValidationError is a problem found before any write. Row is the 1-based
// data row, or 0 when the problem is not tied to one row.
type ValidationError struct {
	Row   int
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("validation failed at row %d (%s): %v", e.Row, e.Field, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("validation failed at row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Mismatch is one field whose stored value differs from what was written.
type Mismatch struct {
	Field    string      `json:"field"`
	Expected interface{} `json:"expected"`
	Actual   interface{} `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %v, got %v", m.Field, m.Expected, m.Actual)
}

// VerificationError means a template did not read back as written. Row is 0
// when the check was not made for a plan row. The transaction it happened in
// is rolled back.
type VerificationError struct {
	Row        int
	Template   string
	Mismatches []Mismatch
}

func (e *VerificationError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	if e.Row == 0 {
		return fmt.Sprintf("verification failed for %s: %s", e.Template, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("verification failed at row %d for %s: %s", e.Row, e.Template, strings.Join(parts, "; "))
}
