package result

import (
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/pobon98/school-management/core/student"
)

const (
	colRollNo        = "roll_no"
	colEmail         = "email"
	colMarksObtained = "marks_obtained"
	colMaxMarks      = "max_marks"
	colCgpa          = "cgpa_term"

	msgEmptyFile      = "CSV file is empty."
	msgMissingMarks   = "CSV must include at least marks_obtained and max_marks columns."
	msgMissingKeys    = "CSV must include roll_no and/or email column to match students."
	msgUnreadableFile = "Failed to import CSV. Please check the format."
)

var (
	exportHeader = []string{
		"student_id", "name", "class", colRollNo, "subject_id", "term_id", colMarksObtained, colMaxMarks, colCgpa,
	}
	sampleHeader = []string{colRollNo, colEmail, colMarksObtained, colMaxMarks, colCgpa}

	samplePlaceholders = [][]string{
		{"1", "student1@example.com", "80", "100", "8.5"},
		{"2", "student2@example.com", "75", "100", "8.0"},
	}

	NowFunc = time.Now // mockable
)

// importRow is one data row of an uploaded file, cells trimmed.
type importRow struct {
	rollNo, email, marksObtained, max, cgpa string
}

// parseImport reads an uploaded marks file. The first non-blank record is the header;
// columns are matched case-insensitively in any order. Quoted fields are supported.
func parseImport(text string) ([]importRow, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		header []string
		rows   []importRow
		idx    map[string]int
	)
	cell := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{Msg: msgUnreadableFile}
		}
		if isBlankRecord(rec) {
			continue
		}

		if header == nil {
			header = rec
			idx = make(map[string]int, len(rec))
			for i, h := range rec {
				h = strings.ToLower(strings.TrimSpace(h))
				if _, dup := idx[h]; !dup {
					idx[h] = i
				}
			}
			_, hasMarks := idx[colMarksObtained]
			_, hasMax := idx[colMaxMarks]
			if !hasMarks || !hasMax {
				return nil, &FormatError{Msg: msgMissingMarks}
			}
			_, hasRoll := idx[colRollNo]
			_, hasEmail := idx[colEmail]
			if !hasRoll && !hasEmail {
				return nil, &FormatError{Msg: msgMissingKeys}
			}
			continue
		}

		rows = append(rows, importRow{
			rollNo:        cell(rec, colRollNo),
			email:         cell(rec, colEmail),
			marksObtained: cell(rec, colMarksObtained),
			max:           cell(rec, colMaxMarks),
			cgpa:          cell(rec, colCgpa),
		})
	}

	if header == nil {
		return nil, &FormatError{Msg: msgEmptyFile}
	}
	return rows, nil
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// applyImport overwrites the marks of every matched student. A row matches on roll number
// first, then on email, both case-insensitive. The CGPA is only overwritten when given.
func applyImport(sh *Sheet, rows []importRow) ImportSummary {
	byRoll := make(map[string]int, len(sh.Rows))
	byEmail := make(map[string]int, len(sh.Rows))
	for i, row := range sh.Rows {
		st := row.Student
		if key := strings.ToLower(strings.TrimSpace(st.RollNo.String)); st.RollNo.Valid && key != "" {
			byRoll[key] = i
		}
		if key := strings.ToLower(strings.TrimSpace(st.Email.String)); st.Email.Valid && key != "" {
			byEmail[key] = i
		}
	}

	var sum ImportSummary
	for _, in := range rows {
		i, ok := -1, false
		if in.rollNo != "" {
			i, ok = byRoll[strings.ToLower(in.rollNo)]
		}
		if !ok && in.email != "" {
			i, ok = byEmail[strings.ToLower(in.email)]
		}
		if !ok {
			sum.Skipped++
			continue
		}

		row := &sh.Rows[i]
		row.Mark.MarksObtained = in.marksObtained
		row.Mark.MaxMarks = in.max
		if in.cgpa != "" {
			row.Cgpa.Value = in.cgpa
		}
		sum.Matched++
	}
	return sum
}

// escapeField quotes a value only when it holds a comma or a double quote.
func escapeField(v string) string {
	if strings.ContainsAny(v, `,"`) {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

func joinRecord(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escapeField(v)
	}
	return strings.Join(escaped, ",")
}

// exportCSV renders the current edit state, saved or not, in roster order.
func exportCSV(sh Sheet) string {
	lines := make([]string, 0, len(sh.Rows)+1)
	lines = append(lines, strings.Join(exportHeader, ","))
	for _, row := range sh.Rows {
		st := row.Student
		lines = append(lines, joinRecord([]string{
			st.ID,
			st.Name,
			st.Class.String,
			st.RollNo.String,
			sh.Selection.SubjectID,
			sh.Selection.TermID,
			strings.TrimSpace(row.Mark.MarksObtained),
			strings.TrimSpace(row.Mark.MaxMarks),
			strings.TrimSpace(row.Cgpa.Value),
		}))
	}
	return strings.Join(lines, "\n")
}

// exportSampleCSV uses up to the first 3 roster students as worked examples.
func exportSampleCSV(roster []student.Student) string {
	lines := []string{strings.Join(sampleHeader, ",")}
	if len(roster) == 0 {
		for _, rec := range samplePlaceholders {
			lines = append(lines, joinRecord(rec))
		}
		return strings.Join(lines, "\n")
	}

	if len(roster) > 3 {
		roster = roster[:3]
	}
	for _, st := range roster {
		rollNo, email := st.RollNo.String, st.Email.String
		if rollNo == "" {
			rollNo = "1"
		}
		if email == "" {
			email = "student@example.com"
		}
		lines = append(lines, joinRecord([]string{rollNo, email, "80", "100", "8.5"}))
	}
	return strings.Join(lines, "\n")
}

func classOrDefault(class string) string {
	if class = strings.TrimSpace(class); class != "" {
		return class
	}
	return "class"
}

// ExportFilename is `results-<class>-<timestamp>.csv`, the timestamp in ISO 8601 with ':' and '.' replaced by '-'.
func ExportFilename(class string, at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "results-" + classOrDefault(class) + "-" + ts + ".csv"
}

// SampleFilename names the template download for class.
func SampleFilename(class string) string {
	return "sample-results-" + classOrDefault(class) + ".csv"
}
