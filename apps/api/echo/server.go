package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
	"github.com/pobon98/school-management/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Metrics    *metrics.Metrics // optional
		Validate   *validator.Validate
		Translator ut.Translator

		UserSvc         *user.Service
		StudentSvc      *student.Service
		TeacherSvc      *teacher.Service
		EventSvc        *event.Service
		AnnouncementSvc *announcement.Service
		AssignmentSvc   *assignment.Service
		AcademicSvc     *academic.Service
		ResultSvc       *result.Service
		AdmissionSvc    *admission.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *jwtAuth
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.StudentSvc, "StudentSvc"),
		vala.IsNotNil(deps.TeacherSvc, "TeacherSvc"),
		vala.IsNotNil(deps.EventSvc, "EventSvc"),
		vala.IsNotNil(deps.AnnouncementSvc, "AnnouncementSvc"),
		vala.IsNotNil(deps.AssignmentSvc, "AssignmentSvc"),
		vala.IsNotNil(deps.AcademicSvc, "AcademicSvc"),
		vala.IsNotNil(deps.ResultSvc, "ResultSvc"),
		vala.IsNotNil(deps.AdmissionSvc, "AdmissionSvc"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.CORSOrigins}))
	s.app.Use(s.deps.Metrics.Middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()

	registerAuthAPI(v1, jwt, s.auth, s.deps)
	registerStudentAPI(v1, jwt, s.deps)
	registerTeacherAPI(v1, jwt, s.deps)
	registerEventAPI(v1, jwt, s.deps)
	registerAnnouncementAPI(v1, jwt, s.deps)
	registerAssignmentAPI(v1, jwt, s.deps)
	registerAcademicAPI(v1, jwt, s.deps)
	registerResultAPI(v1, jwt, s.deps)
	registerAdmissionAPI(v1, s.deps)
}

// Start listens on the configured address. Listener errors are reported on Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error             { return s.errors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the owner of the Server to shut it down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the School Management API!")
}
