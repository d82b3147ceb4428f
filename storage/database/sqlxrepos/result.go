package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/result"
)

const (
	resultColumns = "id, student_id, subject_id, term_id, marks_obtained, max_marks, updated_at"
	cgpaColumns   = "id, student_id, term_id, cgpa, updated_at"

	upsertResultQuery = `INSERT INTO results (` + resultColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, subject_id, term_id) DO UPDATE
		SET marks_obtained = EXCLUDED.marks_obtained, max_marks = EXCLUDED.max_marks, updated_at = EXCLUDED.updated_at
		RETURNING id`
	upsertCgpaQuery = `INSERT INTO term_cgpa (` + cgpaColumns + `) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, term_id) DO UPDATE
		SET cgpa = EXCLUDED.cgpa, updated_at = EXCLUDED.updated_at
		RETURNING id`
)

type resultRepository struct {
	db core.DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db core.DB) *resultRepository {
	return &resultRepository{db: db}
}

func (repo resultRepository) QueryResults(ctx context.Context, termID, subjectID string, studentIDs []string) ([]result.Result, error) {
	results := make([]result.Result, 0)
	if len(studentIDs) == 0 || !isUUID(termID) || !isUUID(subjectID) {
		return results, nil
	}
	err := repo.db.SelectContext(ctx, &results,
		`SELECT `+resultColumns+` FROM results WHERE term_id = $1 AND subject_id = $2 AND student_id = ANY($3::uuid[])`,
		termID, subjectID, pq.Array(studentIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	return results, nil
}

func (repo resultRepository) QueryCgpas(ctx context.Context, termID string, studentIDs []string) ([]result.TermCgpa, error) {
	cgpas := make([]result.TermCgpa, 0)
	if len(studentIDs) == 0 || !isUUID(termID) {
		return cgpas, nil
	}
	err := repo.db.SelectContext(ctx, &cgpas,
		`SELECT `+cgpaColumns+` FROM term_cgpa WHERE term_id = $1 AND student_id = ANY($2::uuid[])`,
		termID, pq.Array(studentIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying CGPA")
	}
	return cgpas, nil
}

// SaveBatch writes the whole batch in one transaction; any rejected row rolls everything back.
func (repo resultRepository) SaveBatch(ctx context.Context, batch result.Batch) (result.SavedBatch, error) {
	saved := result.SavedBatch{
		ResultIDs: make(map[string]string, len(batch.Results)),
		CgpaIDs:   make(map[string]string, len(batch.Cgpas)),
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return result.SavedBatch{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, r := range batch.Results {
		id, err := upsert(ctx, tx, upsertResultQuery,
			newID(r.ID), r.StudentID, r.SubjectID, r.TermID, r.MarksObtained, r.MaxMarks, now,
		)
		if err != nil {
			return result.SavedBatch{}, &result.RowWriteError{StudentID: r.StudentID, Field: "marks", Err: err}
		}
		saved.ResultIDs[r.StudentID] = id
	}
	for _, c := range batch.Cgpas {
		id, err := upsert(ctx, tx, upsertCgpaQuery, newID(c.ID), c.StudentID, c.TermID, c.Cgpa, now)
		if err != nil {
			return result.SavedBatch{}, &result.RowWriteError{StudentID: c.StudentID, Field: "cgpa", Err: err}
		}
		saved.CgpaIDs[c.StudentID] = id
	}

	if err = tx.Commit(); err != nil {
		return result.SavedBatch{}, errors.Wrap(err, "committing results")
	}
	return saved, nil
}

func upsert(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, query, args...)
	return id, err
}

func (repo resultRepository) QueryStudentMarks(ctx context.Context, studentID string) ([]result.StudentMark, error) {
	marks := make([]result.StudentMark, 0)
	if !isUUID(studentID) {
		return marks, nil
	}
	err := repo.db.SelectContext(ctx, &marks,
		`SELECT r.id, r.student_id, r.subject_id, r.term_id, r.marks_obtained, r.max_marks, r.updated_at,
			t.name AS term_name, s.name AS subject_name
		FROM results r
		JOIN terms t ON t.id = r.term_id
		JOIN subjects s ON s.id = r.subject_id
		WHERE r.student_id = $1
		ORDER BY t.created_at, t.id, s.name`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying student marks")
	}
	return marks, nil
}

func (repo resultRepository) QueryStudentCgpas(ctx context.Context, studentID string) ([]result.StudentCgpa, error) {
	cgpas := make([]result.StudentCgpa, 0)
	if !isUUID(studentID) {
		return cgpas, nil
	}
	err := repo.db.SelectContext(ctx, &cgpas,
		`SELECT c.id, c.student_id, c.term_id, c.cgpa, c.updated_at, t.name AS term_name
		FROM term_cgpa c
		JOIN terms t ON t.id = c.term_id
		WHERE c.student_id = $1
		ORDER BY t.created_at, t.id`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying student CGPA")
	}
	return cgpas, nil
}
