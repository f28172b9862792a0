package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"room-service/internal/order/api/http/handle"
	"room-service/internal/order/app/core"
	"room-service/internal/order/app/services"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	brokermessage "room-service/internal/order/adapter/broker_message"
	database "room-service/internal/order/adapter/db"
	xdb "room-service/internal/xpkg/db"
)

// errStopped ends Run quietly when Stop won the race against startup.
var errStopped = errors.New("server stopped during startup")

type Server struct {
	handler     http.Handler
	cfg         *config.Config
	srv         *http.Server
	orderParams *core.OrderParams
	mylog       logger.Logger
	db          *xdb.DB
	publisher   core.IPublisher
	ctx         context.Context
	appCtx      context.Context
	mu          sync.Mutex
	stopped     bool

	// clock overrides time.Now for order bookkeeping when set.
	clock func() time.Time
}

func NewServer(ctx, appCtx context.Context, cfg *config.Config, orderParams *core.OrderParams, mylog logger.Logger) *Server {
	return &Server{
		ctx:         ctx,
		appCtx:      appCtx,
		cfg:         cfg,
		orderParams: orderParams,
		mylog:       mylog,
	}
}

// Run initializes storage, events and routes, then listens. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	if err := s.initializeDatabase(); err != nil {
		if errors.Is(err, errStopped) {
			return nil
		}
		mylog.Action("db_connection_failed").Error("Failed to connect to database", err)
		return err
	}
	mylog.Action("db_connected").Info("Successful database connection", "driver", s.db.Dialect().String())

	if err := s.initializePublisher(); err != nil {
		if errors.Is(err, errStopped) {
			return nil
		}
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Event publisher ready", "driver", s.cfg.Events.Driver)

	if err := s.Configure(); err != nil {
		mylog.Action("configure_failed").Error("Failed to configure server", err)
		return err
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.orderParams.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	mylog.WithGroup("details").With("port", s.orderParams.Port).Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true

	s.mylog.Action("graceful_shutdown_started").Info("Shutting down HTTP server...")

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, core.WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Action("graceful_shutdown_failed").Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.mylog.Action("mb_close_failed").Error("Failed to close event publisher", err)
		} else {
			s.mylog.Action("mb_closed").Info("Event publisher closed")
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Action("db_close_failed").Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Action("db_closed").Info("Database closed")
	}

	s.mylog.Action("graceful_shutdown_completed").Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) initializeDatabase() error {
	db, err := xdb.Start(s.appCtx, s.cfg.DB, s.mylog)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDBConn, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		_ = db.Close()
		return errStopped
	}
	s.db = db
	return nil
}

func (s *Server) initializePublisher() error {
	pub, err := brokermessage.New(s.appCtx, s.cfg, s.mylog)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		_ = pub.Close()
		return errStopped
	}
	s.publisher = pub
	return nil
}

// Configure wires repositories, services and handlers into the router.
func (s *Server) Configure() error {
	loc, err := s.cfg.Orders.Location()
	if err != nil {
		return err
	}

	// Repositories
	orderRepo := database.NewOrderRepo(s.db, loc)
	if s.clock != nil {
		orderRepo.WithClock(s.clock)
	}
	menuRepo := database.NewMenuRepo(s.db)

	// Services
	orderService := services.NewOrderService(orderRepo, s.publisher, services.OrderOptions{
		DefaultMenuVersion: s.cfg.Orders.DefaultMenuVersion,
		Source:             s.cfg.Orders.Source,
		StrictTransitions:  s.cfg.Orders.StrictTransitions,
	}, s.mylog)

	menuService, err := services.NewMenuService(menuRepo, s.mylog)
	if err != nil {
		return err
	}
	if s.cfg.Orders.SeedMenu {
		if err := menuService.Seed(s.appCtx, s.cfg.Orders.DefaultMenuVersion); err != nil {
			return err
		}
	}

	exportService := services.NewExportService(orderRepo, loc, s.mylog)

	authService, err := services.NewAuthService(s.cfg.Auth)
	if err != nil {
		return err
	}
	if !authService.Enabled() {
		s.mylog.Action("auth_disabled").Warn("No passphrase configured, API is open")
	}

	s.handler = NewRouter(Handlers{
		Order:  handle.NewOrderHandler(orderService, s.mylog),
		Menu:   handle.NewMenuHandler(menuService, s.mylog),
		Export: handle.NewExportHandler(exportService, s.mylog),
		Auth:   handle.NewAuthHandler(authService, s.mylog),
		Health: handle.NewHealthHandler(s.db, s.mylog),
	}, s.mylog)
	return nil
}
