package result

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core/student"
)

// Selection is the teaching context a sheet is built for.
type Selection struct {
	TermID    string `json:"term_id" query:"term_id"`
	Class     string `json:"class" query:"class"`
	SubjectID string `json:"subject_id" query:"subject_id"`
}

func (sel Selection) clean() Selection {
	return Selection{
		TermID:    strings.TrimSpace(sel.TermID),
		Class:     strings.TrimSpace(sel.Class),
		SubjectID: strings.TrimSpace(sel.SubjectID),
	}
}

// IsComplete reports whether term, class and subject are all set. Nothing is loaded otherwise.
func (sel Selection) IsComplete() bool {
	sel = sel.clean()
	return sel.TermID != "" && sel.Class != "" && sel.SubjectID != ""
}

// Result is the persisted mark of a student for a subject in a term.
type Result struct {
	ID            string    `json:"id" db:"id"`
	StudentID     string    `json:"student_id" db:"student_id"`
	SubjectID     string    `json:"subject_id" db:"subject_id"`
	TermID        string    `json:"term_id" db:"term_id"`
	MarksObtained float64   `json:"marks_obtained" db:"marks_obtained"`
	MaxMarks      float64   `json:"max_marks" db:"max_marks"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// TermCgpa is the persisted aggregate score of a student for a term.
type TermCgpa struct {
	ID        string    `json:"id" db:"id"`
	StudentID string    `json:"student_id" db:"student_id"`
	TermID    string    `json:"term_id" db:"term_id"`
	Cgpa      float64   `json:"cgpa" db:"cgpa"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Mark is the editable text of a Result. ResultID is set once the row is persisted.
type Mark struct {
	ResultID      null.String `json:"result_id"`
	MarksObtained string      `json:"marks_obtained"`
	MaxMarks      string      `json:"max_marks"`
}

// CgpaEntry is the editable text of a TermCgpa. RowID is set once the row is persisted.
type CgpaEntry struct {
	RowID null.String `json:"row_id"`
	Value string      `json:"value"`
}

// EditableRow is the in-memory edit state of one roster student.
type EditableRow struct {
	Student student.Student `json:"student"`
	Mark    Mark            `json:"mark"`
	Cgpa    CgpaEntry       `json:"cgpa"`
}

// Sheet is the edit state of a Selection: one row per roster student, in roster order.
type Sheet struct {
	Selection Selection     `json:"selection"`
	Idle      bool          `json:"idle"`
	Saving    bool          `json:"saving"`
	Rows      []EditableRow `json:"rows"`
	LoadedAt  time.Time     `json:"loaded_at"`
}

func (sh Sheet) copy() Sheet {
	rows := make([]EditableRow, len(sh.Rows))
	copy(rows, sh.Rows)
	sh.Rows = rows
	return sh
}

func (sh Sheet) roster() []student.Student {
	students := make([]student.Student, 0, len(sh.Rows))
	for _, row := range sh.Rows {
		students = append(students, row.Student)
	}
	return students
}

func (sh Sheet) rowIndex(studentID string) int {
	for i, row := range sh.Rows {
		if row.Student.ID == studentID {
			return i
		}
	}
	return -1
}

// RowEdit carries keystroke edits. Nil fields are left untouched.
type RowEdit struct {
	MarksObtained *string `json:"marks_obtained"`
	MaxMarks      *string `json:"max_marks"`
	Cgpa          *string `json:"cgpa"`
}

// ImportSummary counts the data rows of an imported file.
type ImportSummary struct {
	Matched int `json:"matched"`
	Skipped int `json:"skipped"`
}

// SaveSummary counts what a save wrote and which rows it left out.
type SaveSummary struct {
	Results     int      `json:"results"`
	Cgpas       int      `json:"cgpas"`
	SkippedRows []string `json:"skipped_rows"` // student ids with empty or non-numeric marks
}

// Batch is everything a save writes, applied all or nothing.
// A blank ID means no persisted row is known; the natural key decides insert or update.
type Batch struct {
	Results []Result
	Cgpas   []TermCgpa
}

// SavedBatch maps student ids to the identities the store assigned.
type SavedBatch struct {
	ResultIDs map[string]string
	CgpaIDs   map[string]string
}

// Report is what a student sees of their own results.
type Report struct {
	Student *student.Student `json:"student"`
	Terms   []TermReport     `json:"terms"`
	Reason  string           `json:"reason,omitempty"`
}

// TermReport groups the marks of one term with the CGPA recorded for it.
type TermReport struct {
	TermID   string         `json:"term_id"`
	TermName string         `json:"term_name"`
	Cgpa     null.Float64   `json:"cgpa"`
	Subjects []SubjectMarks `json:"subjects"`
}

// SubjectMarks is the saved result of one subject within a term.
type SubjectMarks struct {
	SubjectID     string  `json:"subject_id"`
	SubjectName   string  `json:"subject_name"`
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      float64 `json:"max_marks"`
}

// StudentMark is a Result joined with its term and subject names.
type StudentMark struct {
	Result
	TermName    string `db:"term_name"`
	SubjectName string `db:"subject_name"`
}

// StudentCgpa is a TermCgpa joined with its term name.
type StudentCgpa struct {
	TermCgpa
	TermName string `db:"term_name"`
}

// formatNumber renders a persisted number the way it is typed: 80, 8.5.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseNumber accepts trimmed, finite decimal text.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
