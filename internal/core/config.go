package core

import (
	"time"

	"github.com/rprtr258/fun"

	"github.com/rprtr258/cpuload/internal/errors"
)

// TODO: set at compile time with -ldflags
const Version = "0.1.0"

// MaxLoadPercent - load percent of a worker that never sleeps
const MaxLoadPercent = 100

// MaxThreads - upper bound of workers in a single run
const MaxThreads = 4096

var ErrInvalidConfig = errors.New("invalid config")

// LoadConfig - validated parameters of a single load run
type LoadConfig struct {
	// Duration - how long to keep workers running, forever if not set
	Duration fun.Option[time.Duration]
	// Threads - number of workers to start, zero means nothing is loaded
	Threads uint
	// LoadPercent - target share of every period each worker spends spinning
	LoadPercent uint8
}

func NewLoadConfig(
	threads uint,
	loadPercent uint8,
	duration fun.Option[time.Duration],
) (LoadConfig, error) {
	if loadPercent > MaxLoadPercent {
		return fun.Zero[LoadConfig](), errors.Wrapf(ErrInvalidConfig,
			"load percent must be in [0, %d], got %d", MaxLoadPercent, loadPercent)
	}

	if threads > MaxThreads {
		return fun.Zero[LoadConfig](), errors.Wrapf(ErrInvalidConfig,
			"threads must be in [0, %d], got %d", MaxThreads, threads)
	}

	if d, ok := duration.Unpack(); ok && d <= 0 {
		return fun.Zero[LoadConfig](), errors.Wrapf(ErrInvalidConfig,
			"duration must be positive, got %s", d)
	}

	return LoadConfig{
		Duration:    duration,
		Threads:     threads,
		LoadPercent: loadPercent,
	}, nil
}
