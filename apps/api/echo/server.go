package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/ledger"
	"github.com/trezcool/shiksha/core/staff"
	"github.com/trezcool/shiksha/core/student"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf   *core.Config
		Logger core.Logger

		StaffSvc   staff.Service
		StudentSvc student.Service
		LedgerSvc  ledger.Service

		// SignalShutdown is called when an unrecoverable error is caught so
		// main can stop the server gracefully.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts      *Options
		app       *echo.Echo
		jwtConfig middleware.JWTConfig
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(opts.Conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    "staffToken",
			Claims:        new(Claims),
		},
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConfig)

	registerStaffAPI(v1, jwt, s.opts.StaffSvc, conf)
	registerStudentAPI(v1, jwt, s.opts.StudentSvc)
	registerLedgerAPI(v1, jwt, s.opts.LedgerSvc)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shiksha API!")
}
