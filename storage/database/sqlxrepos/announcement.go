package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/announcement"
)

const announcementColumns = "id, title, body, class, created_by, created_at"

type announcementRepository struct {
	exec core.DBExecutor
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(exec core.DBExecutor) *announcementRepository {
	return &announcementRepository{exec: exec}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, an announcement.Announcement) (announcement.Announcement, error) {
	an.ID = newID(an.ID)
	an.CreatedAt = utcOrNow(an.CreatedAt)
	_, err := repo.exec.NamedExecContext(ctx,
		`INSERT INTO announcements (`+announcementColumns+`) VALUES (:id, :title, :body, :class, :created_by, :created_at)`,
		an,
	)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return an, nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context, classes ...string) ([]announcement.Announcement, error) {
	var (
		q    = `SELECT ` + announcementColumns + ` FROM announcements`
		args []interface{}
	)
	if len(classes) > 0 {
		q += ` WHERE class IS NULL OR class = '' OR class = ANY($1)`
		args = append(args, pq.Array(classes))
	}
	q += ` ORDER BY created_at DESC`

	announcements := make([]announcement.Announcement, 0)
	if err := repo.exec.SelectContext(ctx, &announcements, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return announcements, nil
}

func (repo announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	return deleteByID(ctx, repo.exec, "announcements", id)
}
