// Package http exposes the engines over a JSON HTTP API. Read routes are
// open; mutating routes require the editor bearer token when one is
// configured and are refused outright when none is.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/classquest/classquest/config"
	"github.com/classquest/classquest/internal/application"
	"github.com/classquest/classquest/pkg/logger"
)

// Server wires the engines to an echo instance.
type Server struct {
	echo *echo.Echo
	cfg  config.HTTPConfig
	log  *logger.Logger

	registry     *application.Registry
	ledger       *application.LedgerEngine
	attendance   *application.AttendanceTracker
	observations *application.ObservationLog
	levels       *application.LevelService
}

// NewServer builds the HTTP server and registers all routes.
func NewServer(
	cfg config.HTTPConfig,
	log *logger.Logger,
	registry *application.Registry,
	ledger *application.LedgerEngine,
	attendance *application.AttendanceTracker,
	observations *application.ObservationLog,
	levels *application.LevelService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	s := &Server{
		echo:         e,
		cfg:          cfg,
		log:          log.With(logger.Component("http")),
		registry:     registry,
		ledger:       ledger,
		attendance:   attendance,
		observations: observations,
		levels:       levels,
	}

	e.Use(middleware.Recover())
	e.Use(s.requestID())
	e.Use(s.requestLogger())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api/v1")
	edit := api.Group("", s.editorOnly())

	// Roster
	api.GET("/students", s.handleListStudents)
	api.GET("/students/:id", s.handleGetStudent)
	edit.PUT("/students/:id", s.handleSaveStudent)

	// Institutions
	api.GET("/institutions", s.handleListInstitutions)
	api.GET("/institutions/:id/students", s.handleInstitutionStudents)
	edit.PUT("/institutions", s.handleSaveInstitutions)

	// Ledger
	api.GET("/students/:id/ledger", s.handleLedgerEntries)
	edit.POST("/students/:id/xp", s.handleApplyDelta)
	edit.DELETE("/students/:id/ledger", s.handleDeleteEntries)
	edit.POST("/students/:id/reconcile", s.handleReconcile)
	edit.POST("/ledger/apply-pending", s.handleApplyPending)

	// Attendance
	api.GET("/students/:id/attendance", s.handleMonthAttendance)
	api.GET("/students/:id/attendance/summary", s.handleMonthSummary)
	edit.POST("/students/:id/attendance/toggle", s.handleToggleAttendance)
	edit.PUT("/students/:id/attendance", s.handleSetAttendance)

	// Observations
	api.GET("/students/:id/observations", s.handleListObservations)
	edit.POST("/students/:id/observations", s.handleAppendObservation)
	edit.DELETE("/students/:id/observations", s.handleDeleteObservations)

	// Milestones
	api.GET("/milestones", s.handleMilestoneTable)
	api.GET("/students/:id/level", s.handleStudentLevel)
	edit.PUT("/milestones", s.handleSaveMilestones)
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.F("addr", s.cfg.Addr))
	if err := s.echo.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
