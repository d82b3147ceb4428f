package teacher

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
)

type Teacher struct {
	ID        string      `json:"id" db:"id"`
	FirstName string      `json:"first_name" db:"first_name"`
	LastName  null.String `json:"last_name" db:"last_name"`
	Subject   null.String `json:"subject" db:"subject"`
	Email     null.String `json:"email" db:"email"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
}

// NewTeacher takes the full name in one field; the first word becomes the first name.
type NewTeacher struct {
	Name    string `json:"name" validate:"required,notblank"`
	Subject string `json:"subject"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Subject = core.CleanString(nt.Subject)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	return validate.Struct(nt)
}

// SplitName splits a full name on whitespace: first token, then the rest joined by single spaces.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// QueryTeachers returns every teacher ordered by first name.
		QueryTeachers(ctx context.Context) ([]Teacher, error)
		DeleteTeacher(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, sess core.Session, nt NewTeacher) (Teacher, error) {
	if !sess.IsAdmin() {
		return Teacher{}, core.ErrForbidden
	}
	first, last := SplitName(nt.Name)
	t := Teacher{
		FirstName: first,
		LastName:  core.NullString(last),
		Subject:   core.NullString(nt.Subject),
		Email:     core.NullString(nt.Email, true /* lower */),
		CreatedAt: time.Now().UTC(),
	}
	t, err := svc.repo.CreateTeacher(ctx, t)
	return t, errors.Wrap(err, "creating teacher")
}

func (svc *Service) List(ctx context.Context, sess core.Session) ([]Teacher, error) {
	if !sess.IsStaff() {
		return nil, core.ErrForbidden
	}
	teachers, err := svc.repo.QueryTeachers(ctx)
	return teachers, errors.Wrap(err, "querying teachers")
}

func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if !sess.IsAdmin() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteTeacher(ctx, id)
}
