package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/user"
)

// addUser updates or creates a user.User with the given role and password.
func (cli *commandLine) addUser(email, role, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	role = core.RoleFromString(core.CleanString(role, true /* lower */))

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email}
	}
	usr.Role = role
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
