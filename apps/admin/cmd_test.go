package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/user"
	inmemdb "github.com/pobon98/school-management/storage/database/inmem"
	"github.com/pobon98/school-management/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	usrRepo = inmemdb.NewUserRepository(inmemdb.NewDB())
	return &commandLine{usrRepo: usrRepo}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if pwd == "" {
			return nil, nil
		}
		return []byte(pwd), nil
	}
}

func runCLITest(t *testing.T, cli *commandLine, tt cliTest) {
	t.Helper()
	mockPassword(tt.pwd)
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationsFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "clubs", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { runCLITest(t, cli, tt) })
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-email", "x@school.test", "-role", "janitor"}, pwd: "pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "x@school.test"}, wantErr: errHelp},
		{name: "create admin", args: []string{"adduser", "-email", " Head@School.test "}, pwd: "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { runCLITest(t, cli, tt) })
	}

	usr, err := usrRepo.GetUserByEmail(ctx, "head@school.test")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, usr.Role)
	assert.NoError(t, usr.CheckPassword("first"))

	t.Run("update existing user", func(t *testing.T) {
		runCLITest(t, cli, cliTest{args: []string{"adduser", "-email", "head@school.test", "-role", "teacher"}, pwd: "second"})

		updated, err := usrRepo.GetUserByEmail(ctx, "head@school.test")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, updated.ID)
		assert.Equal(t, core.RoleTeacher, updated.Role)
		assert.NoError(t, updated.CheckPassword("second"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, usrRepo, "awe@school.test", core.RoleTeacher, "mdr")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@school.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@school.test"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AWE@school.test"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { runCLITest(t, cli, tt) })
	}

	refreshed, err := usrRepo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}
