package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"room-service/internal/kitchenfeed"
	"room-service/internal/order"
	"room-service/internal/xpkg/logger"

	kfcore "room-service/internal/kitchenfeed/app/core"
	ordercore "room-service/internal/order/app/core"
	xerrors "room-service/internal/xpkg/errors"
)

func main() {
	mylogger, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	// Global flags for selecting the service mode
	fs := flag.NewFlagSet("main", flag.ExitOnError)
	mode := fs.String("mode", "", "service to run: order-service | kitchen-feed")

	// --mode is ours, every other argument goes to the service
	modeArgs, remainingArgs := splitArgs(os.Args[1:])
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("room_service_failed").Error("Failed to parse flags", err)
		help(fs)
		os.Exit(1)
	}

	if *mode == "" {
		mylogger.Action("room_service_failed").Error("Failed to start room service", xerrors.ErrModeFlag)
		help(fs)
		os.Exit(1)
	}

	ctx := context.Background()
	switch *mode {
	case "order-service", "os":
		l := mylogger.With("service", "order-service")
		l.Action("order_service_started").Info("Successfully started")
		if err := order.Execute(ctx, l, remainingArgs); err != nil {
			if errors.Is(err, ordercore.ErrHelp) {
				return
			}
			log.Fatalf("failed to execute order-service: %s", err)
		}
		l.Action("order_service_completed").Info("Successfully completed")

	case "kitchen-feed", "kf":
		l := mylogger.With("service", "kitchen-feed")
		l.Action("kitchen_feed_started").Info("Successfully started")
		if err := kitchenfeed.Execute(ctx, l, remainingArgs); err != nil {
			if errors.Is(err, kfcore.ErrHelp) {
				return
			}
			log.Fatalf("failed to execute kitchen-feed: %s", err)
		}
		l.Action("kitchen_feed_completed").Info("Successfully completed")

	default:
		mylogger.Action("room_service_failed").Error("Failed to start room service", xerrors.ErrUnknownService)
		help(fs)
		os.Exit(1)
	}
}

// splitArgs separates --mode (either --mode=x or --mode x) from the rest.
func splitArgs(args []string) (modeArgs, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode") || strings.HasPrefix(arg, "-mode") {
			modeArgs = append(modeArgs, arg)
			if !strings.Contains(arg, "=") && i+1 < len(args) {
				i++
				modeArgs = append(modeArgs, args[i])
			}
			continue
		}
		rest = append(rest, arg)
	}
	return modeArgs, rest
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./room-service --mode=order-service --port=3000 --config-path=config.yaml")
	fmt.Println("  ./room-service --mode=kitchen-feed --source=rabbitmq")
}
