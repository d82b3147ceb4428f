// Package sqlxrepos implements the core repositories on postgres with jmoiron/sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
)

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUUID guards lookups on uuid columns, which postgres rejects with a syntax error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func utcOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

// deleteByID deletes the row of table identified by id, or returns core.ErrNotFound.
func deleteByID(ctx context.Context, exec core.DBExecutor, table, id string) error {
	if !isUUID(id) {
		return core.ErrNotFound
	}
	res, err := exec.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting from "+table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting from "+table)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
