package load

import (
	"context"
	"fmt"
	"time"

	"github.com/rprtr258/fun"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rprtr258/cpuload/internal/core"
	"github.com/rprtr258/cpuload/internal/errors"
	"github.com/rprtr258/cpuload/internal/linuxprocess"
)

// ErrBrokenWorker - worker could not be cancelled or joined, which means
// worker disappeared without coordinated shutdown.
var ErrBrokenWorker = errors.New("broken worker")

// Coordinator owns workers of a run and the run lifetime.
type Coordinator struct {
	start func(loadPercent uint8, name string) *Worker
}

func New() Coordinator {
	return Coordinator{
		start: Start,
	}
}

func workerName(i uint) string {
	return fmt.Sprintf("cpuload%d", i)
}

// Run starts cfg.Threads workers, waits for cfg.Duration or ctx cancellation,
// whichever comes first, then cancels and joins every worker in creation
// order. Workers are stopped on every return path.
func (c Coordinator) Run(ctx context.Context, cfg core.LoadConfig) (err error) {
	if cfg.LoadPercent > core.MaxLoadPercent {
		return errors.Wrapf(core.ErrInvalidConfig,
			"load percent must be in [0, %d], got %d", core.MaxLoadPercent, cfg.LoadPercent)
	}

	if cfg.Threads > core.MaxThreads {
		return errors.Wrapf(core.ErrInvalidConfig,
			"threads must be in [0, %d], got %d", core.MaxThreads, cfg.Threads)
	}

	warnOversubscribed(cfg.Threads)

	workers := make([]*Worker, 0, cfg.Threads)
	defer func() {
		err = errors.Combine(err, stopAll(workers))
		logThreads()
	}()

	for i := range cfg.Threads {
		w := c.start(cfg.LoadPercent, workerName(i))
		workers = append(workers, w)
		log.Debug().
			Uint("index", i).
			Str("worker", w.Name()).
			Msg("worker started")
	}

	log.Info().
		Uint("threads", cfg.Threads).
		Uint8("load_percent", cfg.LoadPercent).
		Func(func(e *zerolog.Event) {
			if d, ok := cfg.Duration.Unpack(); ok {
				e.Dur("duration", d)
			}
		}).
		Msg("loading cpu")

	waitRun(ctx, cfg.Duration)
	return nil
}

func waitRun(ctx context.Context, duration fun.Option[time.Duration]) {
	d, ok := duration.Unpack()
	if !ok {
		<-ctx.Done()
		log.Info().Msg("interrupted, stopping workers")
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("interrupted, stopping workers")
	case <-timer.C:
		log.Debug().Dur("duration", d).Msg("duration elapsed, stopping workers")
	}
}

// stopWorker cancels worker and waits for it to stop. Waiting is safe even if
// cancel failed: either signal is already sent or worker loop already returned.
func stopWorker(w *Worker) error {
	errCancel := w.Cancel()
	errWait := w.Wait()
	return errors.Combine(errCancel, errWait)
}

func stopAll(workers []*Worker) error {
	errs := []error{}
	for i, w := range workers {
		if err := stopWorker(w); err != nil {
			log.Error().
				Err(err).
				Int("index", i).
				Str("worker", w.Name()).
				Msg("worker did not shut down cleanly")
			errs = append(errs, fmt.Errorf("%w: #%d %s: %w", ErrBrokenWorker, i, w.Name(), err))
			continue
		}

		log.Debug().
			Int("index", i).
			Str("worker", w.Name()).
			Msg("worker stopped")
	}
	return errors.Combine(errs...)
}

func warnOversubscribed(threads uint) {
	cpus, err := linuxprocess.LogicalCPUs()
	if err != nil {
		log.Debug().Err(err).Msg("can't count cpus")
		return
	}

	if threads > uint(cpus) {
		log.Warn().
			Uint("threads", threads).
			Int("cpus", cpus).
			Msg("more threads than logical cpus, load per thread will be lower than requested")
	}
}

func logThreads() {
	stat, err := linuxprocess.Self()
	if err != nil {
		log.Debug().Err(err).Msg("can't get process stat")
		return
	}

	log.Debug().
		Int32("threads", stat.Threads).
		Msg("all workers stopped")
}
