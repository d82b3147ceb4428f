// Package result reconciles the roster of a class with its persisted marks and CGPA,
// keeps the edit state of each staff member, and moves it in and out of CSV files.
package result

import (
	"context"
	"fmt"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/student"
)

const reasonNoRecord = "No student record is linked to your account yet."

type (
	Repository interface {
		// QueryResults returns the results of (term, subject) restricted to studentIDs.
		QueryResults(ctx context.Context, termID, subjectID string, studentIDs []string) ([]Result, error)
		// QueryCgpas returns the CGPA rows of term restricted to studentIDs.
		QueryCgpas(ctx context.Context, termID string, studentIDs []string) ([]TermCgpa, error)
		// SaveBatch upserts results on (student, subject, term) and CGPA on (student, term)
		// in a single transaction. A rejected row is reported as a *RowWriteError.
		SaveBatch(ctx context.Context, batch Batch) (SavedBatch, error)
		// QueryStudentMarks orders by term creation, then subject name.
		QueryStudentMarks(ctx context.Context, studentID string) ([]StudentMark, error)
		QueryStudentCgpas(ctx context.Context, studentID string) ([]StudentCgpa, error)
	}

	// RosterProvider returns a class roster in roll number order.
	RosterProvider interface {
		Roster(ctx context.Context, class string) ([]student.Student, error)
		FindBySession(ctx context.Context, sess core.Session) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students RosterProvider
		store    *SheetStore
		logger   core.Logger
	}
)

func NewService(repo Repository, students RosterProvider, store *SheetStore, logger core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Service{repo: repo, students: students, store: store, logger: logger}
}

// Load builds a fresh sheet for sel and makes it the current sheet of sess.
// An incomplete selection is idle: nothing is fetched and the previous sheet is dropped.
func (svc *Service) Load(ctx context.Context, sess core.Session, sel Selection) (Sheet, error) {
	if !sess.IsStaff() {
		return Sheet{}, core.ErrForbidden
	}
	sel = sel.clean()
	svc.store.discard(sess.UserID)
	if !sel.IsComplete() {
		return Sheet{Selection: sel, Idle: true, Rows: []EditableRow{}}, nil
	}

	roster, err := svc.students.Roster(ctx, sel.Class)
	if err != nil {
		return Sheet{}, &LoadError{Err: err}
	}

	sh := &Sheet{Selection: sel, Rows: make([]EditableRow, 0, len(roster)), LoadedAt: NowFunc().UTC()}
	if len(roster) > 0 {
		ids := make([]string, 0, len(roster))
		for _, st := range roster {
			ids = append(ids, st.ID)
		}

		results, err := svc.repo.QueryResults(ctx, sel.TermID, sel.SubjectID, ids)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("loading results, rows left blank: %v", err), err, sess)
			results = nil
		}
		cgpas, err := svc.repo.QueryCgpas(ctx, sel.TermID, ids)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("loading CGPA, rows left blank: %v", err), err, sess)
			cgpas = nil
		}

		resultsBy := make(map[string]Result, len(results))
		for _, r := range results {
			if _, ok := resultsBy[r.StudentID]; !ok {
				resultsBy[r.StudentID] = r
			}
		}
		cgpasBy := make(map[string]TermCgpa, len(cgpas))
		for _, c := range cgpas {
			if _, ok := cgpasBy[c.StudentID]; !ok {
				cgpasBy[c.StudentID] = c
			}
		}

		for _, st := range roster {
			row := EditableRow{Student: st}
			if r, ok := resultsBy[st.ID]; ok {
				row.Mark = Mark{
					ResultID:      null.StringFrom(r.ID),
					MarksObtained: formatNumber(r.MarksObtained),
					MaxMarks:      formatNumber(r.MaxMarks),
				}
			}
			if c, ok := cgpasBy[st.ID]; ok {
				row.Cgpa = CgpaEntry{RowID: null.StringFrom(c.ID), Value: formatNumber(c.Cgpa)}
			}
			sh.Rows = append(sh.Rows, row)
		}
	}

	svc.store.put(sess.UserID, sh)
	return sh.copy(), nil
}

// Sheet returns the current sheet of sess.
func (svc *Service) Sheet(sess core.Session) (Sheet, error) {
	var out Sheet
	err := svc.store.view(sess.UserID, func(sh *Sheet) error {
		out = sh.copy()
		return nil
	})
	return out, err
}

// Edit applies keystroke edits to the row of studentID. Text is kept as typed.
func (svc *Service) Edit(sess core.Session, studentID string, edit RowEdit) (EditableRow, error) {
	var out EditableRow
	err := svc.store.view(sess.UserID, func(sh *Sheet) error {
		i := sh.rowIndex(studentID)
		if i < 0 {
			return core.ErrNotFound
		}
		row := &sh.Rows[i]
		if edit.MarksObtained != nil {
			row.Mark.MarksObtained = *edit.MarksObtained
		}
		if edit.MaxMarks != nil {
			row.Mark.MaxMarks = *edit.MaxMarks
		}
		if edit.Cgpa != nil {
			row.Cgpa.Value = *edit.Cgpa
		}
		out = *row
		return nil
	})
	return out, err
}

// Import overwrites the rows matched by an uploaded CSV. On a FormatError the sheet is untouched.
func (svc *Service) Import(sess core.Session, text string) (ImportSummary, error) {
	rows, err := parseImport(text)
	if err != nil {
		// still report a missing sheet first
		if vErr := svc.store.view(sess.UserID, func(*Sheet) error { return nil }); vErr != nil {
			return ImportSummary{}, vErr
		}
		return ImportSummary{}, err
	}

	var sum ImportSummary
	err = svc.store.view(sess.UserID, func(sh *Sheet) error {
		sum = applyImport(sh, rows)
		return nil
	})
	return sum, err
}

// Save writes every row with numeric marks and every numeric CGPA in one batch.
// Rows with blank or non-numeric text are skipped. On failure nothing is written and
// the SaveError names the rows that were rejected. Only one save per user may run at a time,
// even across a reload.
func (svc *Service) Save(ctx context.Context, sess core.Session) (SaveSummary, error) {
	if !sess.IsStaff() {
		return SaveSummary{}, core.ErrForbidden
	}

	sh, snapshot, err := svc.store.beginSave(sess.UserID)
	if err != nil {
		return SaveSummary{}, err
	}
	defer svc.store.endSave(sess.UserID)

	batch, sum := buildBatch(snapshot)
	if len(batch.Results) == 0 && len(batch.Cgpas) == 0 {
		return sum, nil
	}

	saved, err := svc.repo.SaveBatch(ctx, batch)
	if err != nil {
		return SaveSummary{}, newSaveError(snapshot, err)
	}

	svc.store.mu.Lock()
	if svc.store.current(sess.UserID, sh) {
		for i := range sh.Rows {
			id := sh.Rows[i].Student.ID
			if rid, ok := saved.ResultIDs[id]; ok {
				sh.Rows[i].Mark.ResultID = null.StringFrom(rid)
			}
			if cid, ok := saved.CgpaIDs[id]; ok {
				sh.Rows[i].Cgpa.RowID = null.StringFrom(cid)
			}
		}
	}
	svc.store.mu.Unlock()
	return sum, nil
}

func buildBatch(sh Sheet) (Batch, SaveSummary) {
	var (
		batch Batch
		sum   = SaveSummary{SkippedRows: []string{}}
	)
	for _, row := range sh.Rows {
		mo, okMo := parseNumber(row.Mark.MarksObtained)
		mm, okMm := parseNumber(row.Mark.MaxMarks)
		if okMo && okMm {
			batch.Results = append(batch.Results, Result{
				ID:            row.Mark.ResultID.String,
				StudentID:     row.Student.ID,
				SubjectID:     sh.Selection.SubjectID,
				TermID:        sh.Selection.TermID,
				MarksObtained: mo,
				MaxMarks:      mm,
			})
		} else {
			sum.SkippedRows = append(sum.SkippedRows, row.Student.ID)
		}

		if cgpa, ok := parseNumber(row.Cgpa.Value); ok {
			batch.Cgpas = append(batch.Cgpas, TermCgpa{
				ID:        row.Cgpa.RowID.String,
				StudentID: row.Student.ID,
				TermID:    sh.Selection.TermID,
				Cgpa:      cgpa,
			})
		}
	}
	sum.Results = len(batch.Results)
	sum.Cgpas = len(batch.Cgpas)
	return batch, sum
}

func newSaveError(sh Sheet, err error) *SaveError {
	saveErr := &SaveError{Err: err, Failed: []FailedRow{}}
	if rowErr, ok := errors.Cause(err).(*RowWriteError); ok {
		name := rowErr.StudentID
		if i := sh.rowIndex(rowErr.StudentID); i >= 0 {
			name = sh.Rows[i].Student.Name
		}
		reason := "rejected by the database"
		if rowErr.Err != nil {
			reason = rowErr.Err.Error()
		}
		saveErr.Failed = append(saveErr.Failed, FailedRow{
			StudentID: rowErr.StudentID,
			Name:      name,
			Field:     rowErr.Field,
			Reason:    reason,
		})
	}
	return saveErr
}

// ExportCSV renders the current sheet of sess and returns it with its download filename.
func (svc *Service) ExportCSV(sess core.Session) (filename, content string, err error) {
	err = svc.store.view(sess.UserID, func(sh *Sheet) error {
		filename = ExportFilename(sh.Selection.Class, NowFunc())
		content = exportCSV(*sh)
		return nil
	})
	return filename, content, err
}

// ExportSampleCSV renders a template file for class. The loaded sheet provides the examples when it
// is for the same class (or class is blank); otherwise the roster of class is fetched.
func (svc *Service) ExportSampleCSV(ctx context.Context, sess core.Session, class string) (filename, content string, err error) {
	if !sess.IsStaff() {
		return "", "", core.ErrForbidden
	}
	class = strings.TrimSpace(class)

	var roster []student.Student
	found := svc.store.view(sess.UserID, func(sh *Sheet) error {
		if class != "" && class != sh.Selection.Class {
			return ErrNoSheet
		}
		class = sh.Selection.Class
		roster = sh.roster()
		return nil
	}) == nil

	if !found && class != "" {
		if roster, err = svc.students.Roster(ctx, class); err != nil {
			return "", "", &LoadError{Err: err}
		}
	}
	return SampleFilename(class), exportSampleCSV(roster), nil
}

// MyResults returns the marks and CGPA of the student behind sess, grouped by term.
func (svc *Service) MyResults(ctx context.Context, sess core.Session) (Report, error) {
	if !sess.IsStudent() {
		return Report{}, core.ErrForbidden
	}
	me, err := svc.students.FindBySession(ctx, sess)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Report{Terms: []TermReport{}, Reason: reasonNoRecord}, nil
		}
		return Report{}, errors.Wrap(err, "finding student")
	}

	marks, err := svc.repo.QueryStudentMarks(ctx, me.ID)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying marks")
	}
	cgpas, err := svc.repo.QueryStudentCgpas(ctx, me.ID)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying CGPA")
	}

	report := Report{Student: &me, Terms: []TermReport{}}
	index := make(map[string]int)
	termFor := func(id, name string) *TermReport {
		i, ok := index[id]
		if !ok {
			report.Terms = append(report.Terms, TermReport{TermID: id, TermName: name, Subjects: []SubjectMarks{}})
			i = len(report.Terms) - 1
			index[id] = i
		}
		return &report.Terms[i]
	}
	for _, m := range marks {
		tr := termFor(m.TermID, m.TermName)
		tr.Subjects = append(tr.Subjects, SubjectMarks{
			SubjectID:     m.SubjectID,
			SubjectName:   m.SubjectName,
			MarksObtained: m.MarksObtained,
			MaxMarks:      m.MaxMarks,
		})
	}
	for _, c := range cgpas {
		termFor(c.TermID, c.TermName).Cgpa = null.Float64From(c.Cgpa)
	}
	return report, nil
}
