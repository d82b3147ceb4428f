package assignment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/student"
)

const dateLayout = "2006-01-02"

var (
	NowFunc = time.Now // mockable

	// newWindow is how long an assignment counts as new for a student who never opened the list.
	newWindow = 7 * 24 * time.Hour
)

type Assignment struct {
	ID          string      `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description null.String `json:"description" db:"description"`
	Class       string      `json:"class" db:"class"`
	DueDate     null.Time   `json:"due_date" db:"due_date"`
	CreatedBy   string      `json:"created_by" db:"created_by"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"` // UTC
}

type NewAssignment struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description"`
	Class       string `json:"class" validate:"required,notblank,classlabel"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Class = core.CleanString(na.Class)
	na.DueDate = core.CleanString(na.DueDate)
	return validate.Struct(na)
}

// Overview is the dashboard badge of a student.
type Overview struct {
	Class  string `json:"class"`
	Count  int    `json:"count"`
	HasNew bool   `json:"has_new"`
}

type (
	Repository interface {
		CreateAssignment(ctx context.Context, as Assignment) (Assignment, error)
		// QueryAssignments orders by due date (nulls last). An empty class returns all.
		QueryAssignments(ctx context.Context, class string) ([]Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
		// GetLastSeen returns core.ErrNotFound when the user never opened the list.
		GetLastSeen(ctx context.Context, userID string) (time.Time, error)
		SetLastSeen(ctx context.Context, userID string, at time.Time) error
	}

	// StudentFinder resolves the student record of a Session.
	StudentFinder interface {
		FindBySession(ctx context.Context, sess core.Session) (student.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentFinder
	}
)

func NewService(repo Repository, students StudentFinder) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(students, "students"),
	).CheckAndPanic()
	return &Service{repo: repo, students: students}
}

func (svc *Service) Create(ctx context.Context, sess core.Session, na NewAssignment) (Assignment, error) {
	if !sess.IsStaff() {
		return Assignment{}, core.ErrForbidden
	}
	as := Assignment{
		Title:       na.Title,
		Description: core.NullString(na.Description),
		Class:       na.Class,
		CreatedBy:   sess.UserID,
		CreatedAt:   NowFunc().UTC(),
	}
	if na.DueDate != "" {
		if d, err := time.Parse(dateLayout, na.DueDate); err == nil {
			as.DueDate = null.TimeFrom(d)
		}
	}
	as, err := svc.repo.CreateAssignment(ctx, as)
	return as, errors.Wrap(err, "creating assignment")
}

func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if !sess.IsStaff() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteAssignment(ctx, id)
}

// studentClass returns the class of the student behind sess, "" when unknown.
func (svc *Service) studentClass(ctx context.Context, sess core.Session) (string, error) {
	me, err := svc.students.FindBySession(ctx, sess)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "finding student")
	}
	if !me.Class.Valid {
		return "", nil
	}
	return me.Class.String, nil
}

// List returns every assignment to staff and the assignments of their own class to students.
func (svc *Service) List(ctx context.Context, sess core.Session) ([]Assignment, error) {
	if sess.IsStaff() {
		list, err := svc.repo.QueryAssignments(ctx, "")
		return list, errors.Wrap(err, "querying assignments")
	}
	if !sess.IsStudent() {
		return nil, core.ErrForbidden
	}
	class, err := svc.studentClass(ctx, sess)
	if err != nil {
		return nil, err
	}
	if class == "" {
		return []Assignment{}, nil
	}
	list, err := svc.repo.QueryAssignments(ctx, class)
	return list, errors.Wrap(err, "querying assignments")
}

// Overview counts the assignments of the student's class and tells whether any is new:
// created after the last visit, or within the last 7 days when the list was never opened.
func (svc *Service) Overview(ctx context.Context, sess core.Session) (Overview, error) {
	if !sess.IsStudent() {
		return Overview{}, core.ErrForbidden
	}
	class, err := svc.studentClass(ctx, sess)
	if err != nil || class == "" {
		return Overview{}, err
	}
	list, err := svc.repo.QueryAssignments(ctx, class)
	if err != nil {
		return Overview{}, errors.Wrap(err, "querying assignments")
	}
	ov := Overview{Class: class, Count: len(list)}
	if len(list) == 0 {
		return ov, nil
	}

	latest := list[0].CreatedAt
	for _, as := range list[1:] {
		if as.CreatedAt.After(latest) {
			latest = as.CreatedAt
		}
	}

	lastSeen, err := svc.repo.GetLastSeen(ctx, sess.UserID)
	switch {
	case err == nil:
		ov.HasNew = latest.After(lastSeen)
	case errors.Cause(err) == core.ErrNotFound:
		ov.HasNew = NowFunc().Sub(latest) <= newWindow
	default:
		return Overview{}, errors.Wrap(err, "getting last seen")
	}
	return ov, nil
}

// MarkSeen records that the student opened the assignment list.
func (svc *Service) MarkSeen(ctx context.Context, sess core.Session) error {
	if !sess.IsAuthenticated() {
		return core.ErrForbidden
	}
	return errors.Wrap(svc.repo.SetLastSeen(ctx, sess.UserID, NowFunc().UTC()), "setting last seen")
}
