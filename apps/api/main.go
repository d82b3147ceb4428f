package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/pobon98/school-management/apps/api/echo"
	"github.com/pobon98/school-management/core"
	"github.com/pobon98/school-management/core/academic"
	"github.com/pobon98/school-management/core/admission"
	"github.com/pobon98/school-management/core/announcement"
	"github.com/pobon98/school-management/core/assignment"
	"github.com/pobon98/school-management/core/event"
	"github.com/pobon98/school-management/core/result"
	"github.com/pobon98/school-management/core/student"
	"github.com/pobon98/school-management/core/teacher"
	"github.com/pobon98/school-management/core/user"
	emailsvc "github.com/pobon98/school-management/services/email"
	logsvc "github.com/pobon98/school-management/services/logger"
	"github.com/pobon98/school-management/services/metrics"
	"github.com/pobon98/school-management/storage/database"
	inmemdb "github.com/pobon98/school-management/storage/database/inmem"
	"github.com/pobon98/school-management/storage/database/sqlxrepos"
)

const engineMemory = "memory"

type repositories struct {
	users         user.Repository
	students      student.Repository
	teachers      teacher.Repository
	events        event.Repository
	announcements announcement.Repository
	assignments   assignment.Repository
	academics     academic.Repository
	results       result.Repository
	admissions    admission.Repository
	close         func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	repos, err := setUpRepositories(conf, dbLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	studentSvc := student.NewService(repos.students)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	mtr := metrics.New()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus scrape endpoint.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", mtr.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Metrics:         mtr,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         user.NewService(repos.users, mailSvc, conf),
			StudentSvc:      studentSvc,
			TeacherSvc:      teacher.NewService(repos.teachers),
			EventSvc:        event.NewService(repos.events),
			AnnouncementSvc: announcement.NewService(repos.announcements, studentSvc),
			AssignmentSvc:   assignment.NewService(repos.assignments, studentSvc),
			AcademicSvc:     academic.NewService(repos.academics),
			ResultSvc:       result.NewService(repos.results, studentSvc, result.NewSheetStore(), logger),
			AdmissionSvc:    admission.NewService(repos.admissions, mailSvc, conf, logger),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens and migrates the postgres database.
// The memory engine keeps everything in process, for DEBUG demos only.
func setUpRepositories(conf *core.Config, logger core.Logger) (*repositories, error) {
	if conf.Database.Engine == engineMemory {
		if !conf.Debug {
			return nil, fmt.Errorf("the %q database engine is only allowed in debug mode", engineMemory)
		}
		logger.Warn("using the in-memory database: nothing will be persisted")
		db := inmemdb.NewDB()
		return &repositories{
			users:         inmemdb.NewUserRepository(db),
			students:      inmemdb.NewStudentRepository(db),
			teachers:      inmemdb.NewTeacherRepository(db),
			events:        inmemdb.NewEventRepository(db),
			announcements: inmemdb.NewAnnouncementRepository(db),
			assignments:   inmemdb.NewAssignmentRepository(db),
			academics:     inmemdb.NewAcademicRepository(db),
			results:       inmemdb.NewResultRepository(db),
			admissions:    inmemdb.NewAdmissionRepository(db),
			close:         func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &repositories{
		users:         sqlxrepos.NewUserRepository(db),
		students:      sqlxrepos.NewStudentRepository(db),
		teachers:      sqlxrepos.NewTeacherRepository(db),
		events:        sqlxrepos.NewEventRepository(db),
		announcements: sqlxrepos.NewAnnouncementRepository(db),
		assignments:   sqlxrepos.NewAssignmentRepository(db),
		academics:     sqlxrepos.NewAcademicRepository(db),
		results:       sqlxrepos.NewResultRepository(db),
		admissions:    sqlxrepos.NewAdmissionRepository(db),
		close:         db.Close,
	}, nil
}
