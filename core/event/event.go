package event

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pobon98/school-management/core"
)

const dateLayout = "2006-01-02"

type Event struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	MonthShort  string    `json:"month_short" db:"month_short"`
	Date        null.Time `json:"date" db:"date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}

// EventData is used to create and update events. Date is optional, formatted as YYYY-MM-DD.
type EventData struct {
	Title       string `json:"title" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
	MonthShort  string `json:"month_short" validate:"required,notblank,max=3"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (ed *EventData) Validate(validate *validator.Validate) error {
	ed.Title = core.CleanString(ed.Title)
	ed.Description = core.CleanString(ed.Description)
	ed.MonthShort = core.CleanString(ed.MonthShort)
	ed.Date = core.CleanString(ed.Date)
	return validate.Struct(ed)
}

func (ed EventData) date() null.Time {
	if ed.Date == "" {
		return null.Time{}
	}
	d, err := time.Parse(dateLayout, ed.Date)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(d)
}

type (
	Repository interface {
		CreateEvent(ctx context.Context, ev Event) (Event, error)
		// QueryEvents orders by date (nulls last), then newest first.
		QueryEvents(ctx context.Context) ([]Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		UpdateEvent(ctx context.Context, ev Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

// List is public.
func (svc *Service) List(ctx context.Context) ([]Event, error) {
	events, err := svc.repo.QueryEvents(ctx)
	return events, errors.Wrap(err, "querying events")
}

func (svc *Service) Create(ctx context.Context, sess core.Session, data EventData) (Event, error) {
	if !sess.IsAdmin() {
		return Event{}, core.ErrForbidden
	}
	ev := Event{
		Title:       data.Title,
		Description: data.Description,
		MonthShort:  data.MonthShort,
		Date:        data.date(),
		CreatedAt:   time.Now().UTC(),
	}
	ev, err := svc.repo.CreateEvent(ctx, ev)
	return ev, errors.Wrap(err, "creating event")
}

func (svc *Service) Update(ctx context.Context, sess core.Session, id string, data EventData) (Event, error) {
	if !sess.IsAdmin() {
		return Event{}, core.ErrForbidden
	}
	ev, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	ev.Title = data.Title
	ev.Description = data.Description
	ev.MonthShort = data.MonthShort
	ev.Date = data.date()
	ev, err = svc.repo.UpdateEvent(ctx, ev)
	return ev, errors.Wrap(err, "updating event")
}

func (svc *Service) Delete(ctx context.Context, sess core.Session, id string) error {
	if !sess.IsAdmin() {
		return core.ErrForbidden
	}
	return svc.repo.DeleteEvent(ctx, id)
}
