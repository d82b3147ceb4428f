package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/academic"
)

type academicRepository struct {
	exec core.DBExecutor
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(exec core.DBExecutor) *academicRepository {
	return &academicRepository{exec: exec}
}

func (repo academicRepository) CreateTerm(ctx context.Context, t academic.Term) (academic.Term, error) {
	t.ID = newID(t.ID)
	t.CreatedAt = utcOrNow(t.CreatedAt)
	if _, err := repo.exec.NamedExecContext(ctx, `INSERT INTO terms (id, name, created_at) VALUES (:id, :name, :created_at)`, t); err != nil {
		return academic.Term{}, errors.Wrap(err, "inserting term")
	}
	return t, nil
}

func (repo academicRepository) QueryTerms(ctx context.Context) ([]academic.Term, error) {
	terms := make([]academic.Term, 0)
	if err := repo.exec.SelectContext(ctx, &terms, `SELECT id, name, created_at FROM terms ORDER BY created_at, id`); err != nil {
		return nil, errors.Wrap(err, "querying terms")
	}
	return terms, nil
}

func (repo academicRepository) GetTerm(ctx context.Context, id string) (academic.Term, error) {
	if !isUUID(id) {
		return academic.Term{}, core.ErrNotFound
	}
	var t academic.Term
	if err := repo.exec.GetContext(ctx, &t, `SELECT id, name, created_at FROM terms WHERE id = $1`, id); err != nil {
		return academic.Term{}, trapNoRowsErr(err, core.ErrNotFound, "finding term")
	}
	return t, nil
}

func (repo academicRepository) CreateSubject(ctx context.Context, s academic.Subject) (academic.Subject, error) {
	s.ID = newID(s.ID)
	s.CreatedAt = utcOrNow(s.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO subjects (id, name, class, created_at) VALUES (:id, :name, :class, :created_at)`, s,
	)
	if err != nil {
		return academic.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo academicRepository) QuerySubjects(ctx context.Context) ([]academic.Subject, error) {
	subjects := make([]academic.Subject, 0)
	if err := repo.exec.SelectContext(ctx, &subjects, `SELECT id, name, class, created_at FROM subjects ORDER BY name, id`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo academicRepository) GetSubject(ctx context.Context, id string) (academic.Subject, error) {
	if !isUUID(id) {
		return academic.Subject{}, core.ErrNotFound
	}
	var s academic.Subject
	if err := repo.exec.GetContext(ctx, &s, `SELECT id, name, class, created_at FROM subjects WHERE id = $1`, id); err != nil {
		return academic.Subject{}, trapNoRowsErr(err, core.ErrNotFound, "finding subject")
	}
	return s, nil
}
