package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/assignment"
)

const assignmentColumns = "id, title, description, class, due_date, created_by, created_at"

type assignmentRepository struct {
	exec core.DBExecutor
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor) *assignmentRepository {
	return &assignmentRepository{exec: exec}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, as assignment.Assignment) (assignment.Assignment, error) {
	as.ID = newID(as.ID)
	as.CreatedAt = utcOrNow(as.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`)
		VALUES (:id, :title, :description, :class, :due_date, :created_by, :created_at)`,
		as,
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return as, nil
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, class string) ([]assignment.Assignment, error) {
	var (
		q    = `SELECT ` + assignmentColumns + ` FROM assignments`
		args []interface{}
	)
	if class != "" {
		q += ` WHERE class = $1`
		args = append(args, class)
	}
	q += ` ORDER BY due_date ASC NULLS LAST, created_at DESC`

	assignments := make([]assignment.Assignment, 0)
	if err := repo.exec.SelectContext(ctx, &assignments, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignments, nil
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, "assignments", id)
}

func (repo assignmentRepository) GetLastSeen(ctx context.Context, userID string) (time.Time, error) {
	if !isUUID(userID) {
		return time.Time{}, core.ErrNotFound
	}
	var at time.Time
	err := repo.exec.GetContext(ctx, &at, `SELECT last_seen_at FROM assignment_views WHERE user_id = $1`, userID)
	if err != nil {
		return time.Time{}, trapNoRowsErr(err, core.ErrNotFound, "getting last seen")
	}
	return at.UTC(), nil
}

func (repo assignmentRepository) SetLastSeen(ctx context.Context, userID string, at time.Time) error {
	_, err := repo.exec.ExecContext(ctx,
		`INSERT INTO assignment_views (user_id, last_seen_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at`,
		userID, at.UTC(),
	)
	return errors.Wrap(err, "setting last seen")
}
