// Package httpapi exposes the engine's read-only introspection surface:
// tick history, receipt queries, and policy-pack status, over echo.
// Grounded on semantic/http.go's Schema.org response envelope shape and
// semantic/error_helpers.go's ReturnActionError (structured error logging
// plus a sanitized client-facing message), adapted from action-execution
// responses to introspection responses.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/logging"
	"github.com/kgcengine/kgc/policy"
	"github.com/kgcengine/kgc/receipts"
	"github.com/kgcengine/kgc/tick"
)

// TickHistory is the minimal surface the server needs over the engine's
// recorded tick results.
type TickHistory interface {
	Recent(limit int) []tick.PhysicsResult
}

// ReceiptQuery is the minimal surface the server needs over the lockchain.
type ReceiptQuery interface {
	ByHookID(hookID string) ([]receipts.Receipt, error)
	ByActor(actor string) ([]receipts.Receipt, error)
	Recent() []receipts.Receipt
}

// PackStatus is the minimal surface the server needs over the policy manager.
type PackStatus interface {
	ActivePacks() []*policy.Pack
}

// Server is the introspection HTTP server.
type Server struct {
	echo    *echo.Echo
	ticks   TickHistory
	receipts ReceiptQuery
	packs   PackStatus
	log     *logging.Context
}

// Config wires the Server's dependencies.
type Config struct {
	Ticks    TickHistory
	Receipts ReceiptQuery
	Packs    PackStatus
	Log      *logging.Context
}

// New builds a Server with its routes registered.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logging.NewContext(nil, nil)
	}
	s := &Server{echo: echo.New(), ticks: cfg.Ticks, receipts: cfg.Receipts, packs: cfg.Packs, log: log}
	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/v1/ticks", s.handleTicks)
	s.echo.GET("/v1/receipts", s.handleReceipts)
	s.echo.GET("/v1/packs", s.handlePacks)
}

// Start serves on addr, blocking until the server stops.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// finish until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTicks(c echo.Context) error {
	if s.ticks == nil {
		return c.JSON(http.StatusOK, []tick.PhysicsResult{})
	}
	limit := 100
	return c.JSON(http.StatusOK, s.ticks.Recent(limit))
}

func (s *Server) handleReceipts(c echo.Context) error {
	if s.receipts == nil {
		return c.JSON(http.StatusOK, []receipts.Receipt{})
	}
	if hookID := c.QueryParam("hookId"); hookID != "" {
		rs, err := s.receipts.ByHookID(hookID)
		if err != nil {
			return s.returnError(c, "query receipts by hook", err)
		}
		return c.JSON(http.StatusOK, rs)
	}
	if actor := c.QueryParam("actor"); actor != "" {
		rs, err := s.receipts.ByActor(actor)
		if err != nil {
			return s.returnError(c, "query receipts by actor", err)
		}
		return c.JSON(http.StatusOK, rs)
	}
	return c.JSON(http.StatusOK, s.receipts.Recent())
}

func (s *Server) handlePacks(c echo.Context) error {
	if s.packs == nil {
		return c.JSON(http.StatusOK, []*policy.Pack{})
	}
	return c.JSON(http.StatusOK, s.packs.ActivePacks())
}

// returnError standardizes introspection error responses the way
// semantic.ReturnActionError standardizes action-handler errors: log the
// full internal detail, return only the sanitized envelope to the caller.
func (s *Server) returnError(c echo.Context, message string, err error) error {
	s.log.WithFields(map[string]interface{}{
		"request_path":   c.Request().URL.Path,
		"request_method": c.Request().Method,
		"remote_addr":    c.RealIP(),
	}).WithError(err).Error(message)
	return c.JSON(http.StatusInternalServerError, errs.Sanitize(err))
}
