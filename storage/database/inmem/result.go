package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/academic"
	"github.com/pobon98/school-management/core/admission"
	"github.com/pobon98/school-management/core/result"
)

var errRejected = errors.New("row rejected")

type (
	resultKey struct{ studentID, subjectID, termID string }
	cgpaKey   struct{ studentID, termID string }

	academicRepository  struct{ db *DB }
	resultRepository    struct{ db *DB }
	admissionRepository struct{ db *DB }
)

var (
	// interface compliance checks
	_ academic.Repository  = (*academicRepository)(nil)
	_ result.Repository    = (*resultRepository)(nil)
	_ admission.Repository = (*admissionRepository)(nil)
)

func NewAcademicRepository(db *DB) *academicRepository   { return &academicRepository{db: db} }
func NewResultRepository(db *DB) *resultRepository       { return &resultRepository{db: db} }
func NewAdmissionRepository(db *DB) *admissionRepository { return &admissionRepository{db: db} }

// Reject makes every following SaveBatch fail on field ("marks" or "cgpa") of studentID.
func (db *DB) Reject(studentID, field string) {
	db.mutex.Lock()
	db.rejected[studentID] = field
	db.mutex.Unlock()
}

// Inquiries returns the stored admission inquiries, oldest first.
func (db *DB) Inquiries() []admission.Inquiry {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return append([]admission.Inquiry(nil), db.inquiries...)
}

// CountResults returns the number of stored Result and TermCgpa rows.
func (db *DB) CountResults() (results, cgpas int) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.results), len(db.cgpas)
}

// deleteStudentRecords cascades a student deletion. The caller holds the lock.
func (db *DB) deleteStudentRecords(studentID string) {
	for k := range db.results {
		if k.studentID == studentID {
			delete(db.results, k)
		}
	}
	for k := range db.cgpas {
		if k.studentID == studentID {
			delete(db.cgpas, k)
		}
	}
}

// terms & subjects

func (repo *academicRepository) CreateTerm(_ context.Context, t academic.Term) (academic.Term, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = newID(t.ID)
	t.CreatedAt = nowIfZero(t.CreatedAt)
	repo.db.terms = append(repo.db.terms, t)
	return t, nil
}

func (repo *academicRepository) QueryTerms(_ context.Context) ([]academic.Term, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append(make([]academic.Term, 0, len(repo.db.terms)), repo.db.terms...), nil
}

func (repo *academicRepository) GetTerm(_ context.Context, id string) (academic.Term, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, t := range repo.db.terms {
		if t.ID == id {
			return t, nil
		}
	}
	return academic.Term{}, core.ErrNotFound
}

func (repo *academicRepository) CreateSubject(_ context.Context, s academic.Subject) (academic.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = newID(s.ID)
	s.CreatedAt = nowIfZero(s.CreatedAt)
	repo.db.subjects = append(repo.db.subjects, s)
	return s, nil
}

func (repo *academicRepository) QuerySubjects(_ context.Context) ([]academic.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := append(make([]academic.Subject, 0, len(repo.db.subjects)), repo.db.subjects...)
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	return subjects, nil
}

func (repo *academicRepository) GetSubject(_ context.Context, id string) (academic.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.subjects {
		if s.ID == id {
			return s, nil
		}
	}
	return academic.Subject{}, core.ErrNotFound
}

// results

func (repo *resultRepository) QueryResults(_ context.Context, termID, subjectID string, studentIDs []string) ([]result.Result, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := make([]result.Result, 0, len(studentIDs))
	for _, id := range studentIDs {
		if r, ok := repo.db.results[resultKey{id, subjectID, termID}]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (repo *resultRepository) QueryCgpas(_ context.Context, termID string, studentIDs []string) ([]result.TermCgpa, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := make([]result.TermCgpa, 0, len(studentIDs))
	for _, id := range studentIDs {
		if c, ok := repo.db.cgpas[cgpaKey{id, termID}]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// SaveBatch checks every row before writing any, so a rejected row leaves the tables untouched.
func (repo *resultRepository) SaveBatch(_ context.Context, batch result.Batch) (result.SavedBatch, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, r := range batch.Results {
		if repo.db.rejected[r.StudentID] == "marks" {
			return result.SavedBatch{}, &result.RowWriteError{StudentID: r.StudentID, Field: "marks", Err: errRejected}
		}
	}
	for _, c := range batch.Cgpas {
		if repo.db.rejected[c.StudentID] == "cgpa" {
			return result.SavedBatch{}, &result.RowWriteError{StudentID: c.StudentID, Field: "cgpa", Err: errRejected}
		}
	}

	now := time.Now().UTC()
	saved := result.SavedBatch{
		ResultIDs: make(map[string]string, len(batch.Results)),
		CgpaIDs:   make(map[string]string, len(batch.Cgpas)),
	}
	for _, r := range batch.Results {
		key := resultKey{r.StudentID, r.SubjectID, r.TermID}
		if prev, ok := repo.db.results[key]; ok {
			r.ID = prev.ID
		}
		r.ID = newID(r.ID)
		r.UpdatedAt = now
		repo.db.results[key] = r
		saved.ResultIDs[r.StudentID] = r.ID
	}
	for _, c := range batch.Cgpas {
		key := cgpaKey{c.StudentID, c.TermID}
		if prev, ok := repo.db.cgpas[key]; ok {
			c.ID = prev.ID
		}
		c.ID = newID(c.ID)
		c.UpdatedAt = now
		repo.db.cgpas[key] = c
		saved.CgpaIDs[c.StudentID] = c.ID
	}
	return saved, nil
}

func (repo *resultRepository) names() (terms map[string]int, termNames, subjectNames map[string]string) {
	terms = make(map[string]int, len(repo.db.terms))
	termNames = make(map[string]string, len(repo.db.terms))
	for i, t := range repo.db.terms {
		terms[t.ID] = i
		termNames[t.ID] = t.Name
	}
	subjectNames = make(map[string]string, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		subjectNames[s.ID] = s.Name
	}
	return terms, termNames, subjectNames
}

func (repo *resultRepository) QueryStudentMarks(_ context.Context, studentID string) ([]result.StudentMark, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	termOrder, termNames, subjectNames := repo.names()
	out := make([]result.StudentMark, 0)
	for k, r := range repo.db.results {
		if k.studentID != studentID {
			continue
		}
		out = append(out, result.StudentMark{Result: r, TermName: termNames[r.TermID], SubjectName: subjectNames[r.SubjectID]})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := termOrder[out[i].TermID], termOrder[out[j].TermID]
		if ti != tj {
			return ti < tj
		}
		return out[i].SubjectName < out[j].SubjectName
	})
	return out, nil
}

func (repo *resultRepository) QueryStudentCgpas(_ context.Context, studentID string) ([]result.StudentCgpa, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	termOrder, termNames, _ := repo.names()
	out := make([]result.StudentCgpa, 0)
	for k, c := range repo.db.cgpas {
		if k.studentID == studentID {
			out = append(out, result.StudentCgpa{TermCgpa: c, TermName: termNames[c.TermID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return termOrder[out[i].TermID] < termOrder[out[j].TermID] })
	return out, nil
}

// admission inquiries

func (repo *admissionRepository) CreateInquiry(_ context.Context, inq admission.Inquiry) (admission.Inquiry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	inq.ID = newID(inq.ID)
	inq.CreatedAt = nowIfZero(inq.CreatedAt)
	repo.db.inquiries = append(repo.db.inquiries, inq)
	return inq, nil
}
