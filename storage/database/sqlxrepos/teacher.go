package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/teacher"
)

const teacherColumns = "id, first_name, last_name, subject, email, created_at"

type teacherRepository struct {
	exec core.DBExecutor
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(exec core.DBExecutor) *teacherRepository {
	return &teacherRepository{exec: exec}
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = newID(t.ID)
	t.CreatedAt = utcOrNow(t.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO teachers (`+teacherColumns+`) VALUES (:id, :first_name, :last_name, :subject, :email, :created_at)`,
		t,
	)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo teacherRepository) QueryTeachers(ctx context.Context) ([]teacher.Teacher, error) {
	teachers := make([]teacher.Teacher, 0)
	err := repo.exec.SelectContext(ctx, &teachers, `SELECT `+teacherColumns+` FROM teachers ORDER BY first_name, id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	return teachers, nil
}

func (repo teacherRepository) DeleteTeacher(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, "teachers", id)
}
