package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/student"
	emailsvc "github.com/trezcool/shiksha/services/email"
	"github.com/trezcool/shiksha/storage/database"
	pgrepos "github.com/trezcool/shiksha/storage/database/postgres"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	sqlxDB := sqlx.NewDb(db, "postgres")

	studentRepo := pgrepos.NewStudentRepository(sqlxDB)

	// start CLI
	cli := commandLine{
		db:         db,
		staffRepo:  pgrepos.NewStaffRepository(sqlxDB),
		studentSvc: student.NewService(studentRepo, emailsvc.NewConsoleService(conf), nopLogger{logger}, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

// nopLogger adapts the standard logger to core.Logger for CLI runs.
type nopLogger struct {
	std *log.Logger
}

func (l nopLogger) Enable(bool)                           {}
func (l nopLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg) }
func (l nopLogger) Info(msg string, args ...interface{})  { l.std.Println(msg) }
func (l nopLogger) Warn(msg string, args ...interface{})  { l.std.Println(msg) }
func (l nopLogger) Error(msg string, args ...interface{}) { l.std.Println(msg) }
func (l nopLogger) Fatal(msg string, args ...interface{}) { l.std.Fatal(msg) }
