package kitchenfeed

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"room-service/internal/kitchenfeed/app/core"
	"room-service/internal/kitchenfeed/consumer"
	"room-service/internal/xpkg/config"
	"room-service/internal/xpkg/logger"

	brokermessage "room-service/internal/kitchenfeed/adapter/broker_message"
)

type params struct {
	configPath string
	source     string
	prefetch   int
	cfg        *config.Config
}

// Execute starts the kitchen feed subscriber
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

	if params.cfg, err = config.LoadConfig(params.configPath); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid config", err)
		return err
	}
	if params.source == "" {
		params.source = params.cfg.Events.Driver
	}

	if mylog, err = logger.FromConfig(params.cfg.Logging); err != nil {
		return err
	}
	mylog = mylog.With("service", "kitchen-feed")

	source, err := newSource(params, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection", "source", params.source)

	feed := consumer.NewFeed(newCtx, source, os.Stdout, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- feed.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		<-runErrCh
	case err := <-runErrCh:
		if err != nil {
			mylog.Action("kitchen_feed_failed").Error("Feed failed unexpectedly", err)
			_ = feed.Stop(context.Background())
			return err
		}
	}
	return feed.Stop(context.Background())
}

func newSource(p *params, mylog logger.Logger) (core.ISource, error) {
	switch p.source {
	case "rabbitmq":
		return brokermessage.NewRabbitMQ(p.cfg.RMQ, p.prefetch, mylog)
	case "kafka":
		return brokermessage.NewKafka(p.cfg.Kafka, mylog), nil
	default:
		return nil, core.ErrUnknownSource
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("kitchen-feed", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	source := fs.String("source", "", "event source: rabbitmq | kafka (default: events.driver)")
	prefetch := fs.Int("prefetch", core.DefaultPrefetch, "RabbitMQ prefetch count")

	if err := fs.Parse(args); err != nil {
		return nil, core.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		configPath: *configPath,
		source:     *source,
		prefetch:   *prefetch,
	}, nil
}
