package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pobon98/school-management/core/user"
)

// CreateUser stores a user with the given role. An empty pwd leaves the account without a password.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	email, role, pwd string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
