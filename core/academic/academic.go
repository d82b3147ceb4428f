// Package academic holds the reference data of the school year: terms and subjects.
package academic

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
)

type Term struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// Subject is shared by every class when Class is NULL.
type Subject struct {
	ID        string      `json:"id" db:"id"`
	Name      string      `json:"name" db:"name"`
	Class     null.String `json:"class" db:"class"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
}

type NewTerm struct {
	Name string `json:"name" validate:"required,notblank"`
}

func (nt *NewTerm) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

type NewSubject struct {
	Name  string `json:"name" validate:"required,notblank"`
	Class string `json:"class" validate:"omitempty,classlabel"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Class = core.CleanString(ns.Class)
	return validate.Struct(ns)
}

type (
	Repository interface {
		CreateTerm(ctx context.Context, t Term) (Term, error)
		// QueryTerms orders by creation.
		QueryTerms(ctx context.Context) ([]Term, error)
		GetTerm(ctx context.Context, id string) (Term, error)
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		// QuerySubjects orders by name.
		QuerySubjects(ctx context.Context) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) Terms(ctx context.Context) ([]Term, error) {
	terms, err := svc.repo.QueryTerms(ctx)
	return terms, errors.Wrap(err, "querying terms")
}

func (svc *Service) GetTerm(ctx context.Context, id string) (Term, error) {
	return svc.repo.GetTerm(ctx, id)
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

// Subjects returns all subjects, or only those taught in class (its own plus the shared ones).
func (svc *Service) Subjects(ctx context.Context, class string) ([]Subject, error) {
	subjects, err := svc.repo.QuerySubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	if class == "" {
		return subjects, nil
	}
	filtered := make([]Subject, 0, len(subjects))
	for _, s := range subjects {
		if !s.Class.Valid || s.Class.String == class {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// Classes lists the distinct class labels found on subjects, sorted.
func (svc *Service) Classes(ctx context.Context) ([]string, error) {
	subjects, err := svc.repo.QuerySubjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, s := range subjects {
		if !s.Class.Valid || s.Class.String == "" {
			continue
		}
		if _, ok := seen[s.Class.String]; !ok {
			seen[s.Class.String] = struct{}{}
			classes = append(classes, s.Class.String)
		}
	}
	sort.Strings(classes)
	return classes, nil
}

func (svc *Service) CreateTerm(ctx context.Context, sess core.Session, nt NewTerm) (Term, error) {
	if !sess.IsStaff() {
		return Term{}, core.ErrForbidden
	}
	t, err := svc.repo.CreateTerm(ctx, Term{Name: nt.Name, CreatedAt: time.Now().UTC()})
	return t, errors.Wrap(err, "creating term")
}

func (svc *Service) CreateSubject(ctx context.Context, sess core.Session, ns NewSubject) (Subject, error) {
	if !sess.IsStaff() {
		return Subject{}, core.ErrForbidden
	}
	s := Subject{Name: ns.Name, Class: core.NullString(ns.Class), CreatedAt: time.Now().UTC()}
	s, err := svc.repo.CreateSubject(ctx, s)
	return s, errors.Wrap(err, "creating subject")
}
