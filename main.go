package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/rprtr258/cpuload/internal/cli"
	"github.com/rprtr258/cpuload/internal/config"
	"github.com/rprtr258/cpuload/internal/core"
	"github.com/rprtr258/cpuload/internal/errors"
	"github.com/rprtr258/cpuload/internal/load"
)

func run() int {
	config.SetupLogger(os.Stderr, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := cli.Run(ctx, os.Args); errRun != nil {
		switch {
		case errors.Is(errRun, core.ErrInvalidConfig):
			// no worker was started
			log.Error().Err(errRun).Msg("invalid configuration")
			return 0
		case errors.Is(errRun, load.ErrBrokenWorker):
			log.Error().Err(errRun).Msg("worker shutdown invariant broken, aborting")
			return 2
		default:
			log.Error().Err(errRun).Msg("app exited abnormally")
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(run())
}
