package order

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"room-service/internal/order/api/http"
	"room-service/internal/order/app/core"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	"golang.org/x/sync/errgroup"
)

type params struct {
	orderParams *core.OrderParams
	configPath  string
	cfg         *config.Config
}

// Execute starts order service
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	params, err := parseParams(args)
	if err != nil {
		if !errors.Is(err, core.ErrHelp) {
			mylog.Action("command_parse_failed").Error("Invalid command received", err)
		}
		return err
	}
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	if mylog, err = logger.FromConfig(params.cfg.Logging); err != nil {
		return err
	}
	mylog = mylog.With("service", "order-service")

	server := http.NewServer(newCtx, context.Background(), params.cfg, params.orderParams, mylog)

	g, gctx := errgroup.WithContext(newCtx)
	g.Go(func() error {
		if err := server.Run(); err != nil {
			mylog.Action("order_service_failed").Error("Server failed unexpectedly", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	})

	return g.Wait()
}

// Helper functions to validate cli params

// parseParams parse params from terminal
func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("order-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	port := fs.Int("port", 3000, "Port to run the order service")

	if err := fs.Parse(args); err != nil {
		return nil, core.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		orderParams: &core.OrderParams{
			Port: *port,
		},
		configPath: *configPath,
	}, nil
}

// validateParams loads the config and checks the port
func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg

	if port := params.orderParams.Port; port <= 0 || port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", port)
	}
	return nil
}
