package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/event"
)

const eventColumns = "id, title, description, month_short, date, created_at"

type eventRepository struct {
	exec core.DBExecutor
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(exec core.DBExecutor) *eventRepository {
	return &eventRepository{exec: exec}
}

func (repo eventRepository) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	ev.ID = newID(ev.ID)
	ev.CreatedAt = utcOrNow(ev.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (:id, :title, :description, :month_short, :date, :created_at)`,
		ev,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return ev, nil
}

func (repo eventRepository) QueryEvents(ctx context.Context) ([]event.Event, error) {
	events := make([]event.Event, 0)
	err := repo.exec.SelectContext(ctx, &events,
		`SELECT `+eventColumns+` FROM events ORDER BY date ASC NULLS LAST, created_at DESC`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	return events, nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	if !isUUID(id) {
		return event.Event{}, core.ErrNotFound
	}
	var ev event.Event
	if err := repo.exec.GetContext(ctx, &ev, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id); err != nil {
		return event.Event{}, trapNoRowsErr(err, core.ErrNotFound, "finding event")
	}
	return ev, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if !isUUID(ev.ID) {
		return event.Event{}, core.ErrNotFound
	}
	res, err := repo.exec.NamedExecContext(ctx,
		`UPDATE events SET title = :title, description = :description, month_short = :month_short, date = :date
		WHERE id = :id`,
		ev,
	)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	} else if n == 0 {
		return event.Event{}, core.ErrNotFound
	}
	return repo.GetEvent(ctx, ev.ID)
}

func (repo eventRepository) DeleteEvent(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, "events", id)
}
