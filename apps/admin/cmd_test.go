package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/shiksha/core/staff"
	"github.com/trezcool/shiksha/core/student"
	"github.com/trezcool/shiksha/storage/database/inmem"
	testutil "github.com/trezcool/shiksha/tests"
)

var (
	staffRepo   staff.Repository
	studentRepo student.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()
	db := inmem.NewDB()
	staffRepo = inmem.NewStaffRepository(db)
	studentRepo = inmem.NewStudentRepository(db)

	conf := testutil.NewConfig()
	studentSvc := student.NewService(studentRepo, &testutil.EmailServiceMock{}, testutil.NopLogger{}, conf)

	return &commandLine{
		staffRepo:  staffRepo,
		studentSvc: studentSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
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
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "batch", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	stf := testutil.CreateStaff(t, staffRepo, "Staff", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: staff.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", stf.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", stf.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := staffRepo.GetStaff(context.Background(), staff.GetFilter{ID: stf.ID})
				if err != nil {
					t.Fatalf("GetStaff() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, stf.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addStaff(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cr3t-pwd"), nil }

	tests := []cliTest{
		{name: "no args", args: []string{"addstaff"}, wantErr: errHelp},
		{name: "missing email", args: []string{"addstaff", "-username", "awe"}, wantErr: errHelp},
		{name: "creates account", args: []string{"addstaff", "-username", "awe", "-email", "awe@test.cd"}},
		{name: "updates existing account", args: []string{"addstaff", "-username", "awe", "-email", "awe@test.cd", "-admin"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	stf, err := staffRepo.GetStaff(context.Background(), staff.GetFilter{Username: "awe"})
	if err != nil {
		t.Fatalf("GetStaff() failed: %v", err)
	}
	if !stf.IsAdmin() {
		t.Error("expected the -admin run to grant admin roles")
	}
	if !stf.Active() {
		t.Error("expected the account to be active")
	}
}

func Test_commandLine_assignIDs(t *testing.T) {
	cli := setup(t)

	startDate := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	batch, err := studentRepo.CreateBatch(context.Background(), student.Batch{
		Name:      "Mathematics 2026",
		Subject:   "Mathematics",
		StartDate: startDate,
		FeeAmount: 1200,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateBatch() failed: %v", err)
	}
	withID := testutil.CreateStudent(t, studentRepo, batch.ID, "MTH26007", "Asha Rao", "9876500001")
	missing := testutil.CreateStudent(t, studentRepo, batch.ID, "", "Vikram Shah", "9876500002")

	if err := cli.run([]string{"admin", "assignids"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}

	refreshed, err := studentRepo.GetStudent(context.Background(), student.GetFilter{ID: missing.ID})
	if err != nil {
		t.Fatalf("GetStudent() failed: %v", err)
	}
	if refreshed.HumanID == "" {
		t.Error("expected an assigned student ID")
	}

	kept, err := studentRepo.GetStudent(context.Background(), student.GetFilter{ID: withID.ID})
	if err != nil {
		t.Fatalf("GetStudent() failed: %v", err)
	}
	if kept.HumanID != "MTH26007" {
		t.Errorf("existing ID changed: %s", kept.HumanID)
	}

	// second run is a no-op
	if err := cli.run([]string{"admin", "assignids"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
}
