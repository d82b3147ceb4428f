package result

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrNoSheet        = errors.New("no results sheet loaded; select a term, class and subject first")
)

// LoadError means the roster could not be fetched. The sheet is cleared.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string { return "Unable to load students for the selected class." }
func (e *LoadError) Unwrap() error { return e.Err }

// FormatError means an imported file is structurally invalid. The sheet is left untouched.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string { return e.Msg }

// FailedRow names a row a save could not write.
type FailedRow struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Field     string `json:"field"` // marks | cgpa
	Reason    string `json:"reason"`
}

// SaveError means the save was rolled back. Failed lists the rows that caused it, when known.
type SaveError struct {
	Err    error
	Failed []FailedRow
}

func (e *SaveError) Error() string {
	if len(e.Failed) == 0 {
		return "Failed to save results. Please try again."
	}
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, fmt.Sprintf("%s (%s)", f.Name, f.Field))
	}
	return "Failed to save results for " + strings.Join(names, ", ") + ". Nothing was saved."
}

func (e *SaveError) Unwrap() error { return e.Err }

// RowWriteError is returned by Repository.SaveBatch when a single row is rejected.
type RowWriteError struct {
	StudentID string
	Field     string // marks | cgpa
	Err       error
}

func (e *RowWriteError) Error() string {
	return fmt.Sprintf("writing %s of student %s: %v", e.Field, e.StudentID, e.Err)
}

func (e *RowWriteError) Unwrap() error { return e.Err }
