package announcement

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

// Announcement is school-wide when Class is NULL.
type Announcement struct {
	ID        string      `json:"id" db:"id"`
	Title     string      `json:"title" db:"title"`
	Body      string      `json:"body" db:"body"`
	Class     null.String `json:"class" db:"class"`
	CreatedBy string      `json:"created_by" db:"created_by"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
}

type NewAnnouncement struct {
	Title string `json:"title" validate:"required,notblank"`
	Body  string `json:"body" validate:"required,notblank"`
	Class string `json:"class" validate:"omitempty,classlabel"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	na.Class = core.CleanString(na.Class)
	return validate.Struct(na)
}

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, an Announcement) (Announcement, error)
		// QueryAnnouncements returns newest first. With classes set, only school-wide
		// announcements and those of the given classes are returned.
		QueryAnnouncements(ctx context.Context, classes ...string) ([]Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string) error
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

func (svc *Service) Create(ctx context.Context, sess core.Session, na NewAnnouncement) (Announcement, error) {
	if !sess.IsStaff() {
		return Announcement{}, core.ErrForbidden
	}
	an := Announcement{
		Title:     na.Title,
		Body:      na.Body,
		Class:     core.NullString(na.Class),
		CreatedBy: sess.UserID,
		CreatedAt: time.Now().UTC(),
	}
	an, err := svc.repo.CreateAnnouncement(ctx, an)
	return an, errors.Wrap(err, "creating announcement")
}

// List returns everything to staff; students get school-wide announcements plus their class's.
func (svc *Service) List(ctx context.Context, sess core.Session) ([]Announcement, error) {
	if !sess.IsAuthenticated() {
		return nil, core.ErrForbidden
	}
	if sess.IsStaff() {
		ans, err := svc.repo.QueryAnnouncements(ctx)
		return ans, errors.Wrap(err, "querying announcements")
	}

	me, err := svc.students.FindBySession(ctx, sess)
	if err != nil && errors.Cause(err) != core.ErrNotFound {
		return nil, errors.Wrap(err, "finding student")
	}
	// never matches a real class: school-wide only
	class := ""
	if me.Class.Valid {
		class = me.Class.String
	}
	ans, err := svc.repo.QueryAnnouncements(ctx, class)
	return ans, errors.Wrap(err, "querying announcements")
}

func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if !sess.IsStaff() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteAnnouncement(ctx, id)
}
