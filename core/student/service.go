package student

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
)

const (
	reasonNoRecord = "No student record is linked to your account yet."
	reasonNoClass  = "Your class has not been assigned yet."
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, st Student) (Student, error)
		// QueryStudents returns the matching students in arrival order.
		QueryStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, sess core.Session, ns NewStudent) (Student, error) {
	if !sess.IsAdmin() {
		return Student{}, core.ErrForbidden
	}
	st := Student{
		Name:      ns.Name,
		FirstName: ns.Name,
		LastName:  ns.Name,
		Class:     core.NullString(ns.Class),
		RollNo:    core.NullString(ns.RollNo),
		Email:     core.NullString(ns.Email, true /* lower */),
		CreatedAt: time.Now().UTC(),
	}
	st, err := svc.repo.CreateStudent(ctx, st)
	return st, errors.Wrap(err, "creating student")
}

func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if !sess.IsAdmin() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteStudent(ctx, id)
}

// Roster returns the students of class ordered by roll number.
func (svc *Service) Roster(ctx context.Context, class string) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx, QueryFilter{Class: class})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	SortRoster(students)
	return students, nil
}

// FindBySession returns the student record whose email matches the Session.
func (svc *Service) FindBySession(ctx context.Context, sess core.Session) (Student, error) {
	if sess.Email == "" {
		return Student{}, core.ErrNotFound
	}
	students, err := svc.repo.QueryStudents(ctx, QueryFilter{Email: sess.Email})
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students by email")
	}
	if len(students) == 0 {
		return Student{}, core.ErrNotFound
	}
	return students[0], nil
}

// List returns what sess may see: admins get everyone grouped by class, teachers everyone,
// students their own class ordered by roll number.
func (svc *Service) List(ctx context.Context, sess core.Session) (Listing, error) {
	switch {
	case sess.IsAdmin():
		students, err := svc.repo.QueryStudents(ctx, QueryFilter{})
		if err != nil {
			return Listing{}, errors.Wrap(err, "querying students")
		}
		sort.SliceStable(students, func(i, j int) bool {
			ci, cj := students[i].Class, students[j].Class
			if ci.Valid != cj.Valid {
				return ci.Valid
			}
			return strings.ToLower(ci.String) < strings.ToLower(cj.String)
		})
		return Listing{Students: students}, nil
	case sess.IsTeacher():
		students, err := svc.repo.QueryStudents(ctx, QueryFilter{})
		if err != nil {
			return Listing{}, errors.Wrap(err, "querying students")
		}
		return Listing{Students: students}, nil
	case sess.IsStudent():
		me, err := svc.FindBySession(ctx, sess)
		if err != nil {
			if errors.Cause(err) == core.ErrNotFound {
				return Listing{Students: []Student{}, Reason: reasonNoRecord}, nil
			}
			return Listing{}, err
		}
		if !me.Class.Valid || me.Class.String == "" {
			return Listing{Students: []Student{}, Reason: reasonNoClass}, nil
		}
		students, err := svc.Roster(ctx, me.Class.String)
		if err != nil {
			return Listing{}, err
		}
		return Listing{Class: me.Class.String, Students: students}, nil
	}
	return Listing{}, core.ErrForbidden
}
