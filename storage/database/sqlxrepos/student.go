package sqlxrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/student"
)

const studentColumns = "id, name, first_name, last_name, class, roll_no, email, created_at"

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) *studentRepository {
	return &studentRepository{exec: exec}
}

func (repo studentRepository) CreateStudent(ctx context.Context, st student.Student) (student.Student, error) {
	st.ID = newID(st.ID)
	st.CreatedAt = utcOrNow(st.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO students (`+studentColumns+`)
		VALUES (:id, :name, :first_name, :last_name, :class, :roll_no, :email, :created_at)`,
		st,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return st, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Class != "" {
		args = append(args, filter.Class)
		where = append(where, fmt.Sprintf("class = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		where = append(where, fmt.Sprintf("lower(email) = lower($%d)", len(args)))
	}

	q := `SELECT ` + studentColumns + ` FROM students`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at, id`

	students := make([]student.Student, 0)
	if err := repo.exec.SelectContext(ctx, &students, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, core.ErrNotFound
	}
	var st student.Student
	err := repo.exec.GetContext(ctx, &st, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, core.ErrNotFound, "finding student")
	}
	return st, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, "students", id)
}
