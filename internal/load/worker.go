// Package load spins cpu cores at a target share of wall-clock time.
//
// Every worker repeats a fixed period: it busy-spins for loadPercent of the
// period and sleeps for the rest of it. The cancellation channel is polled
// while spinning and waited on while sleeping, so a worker stops within one
// period after being cancelled.
package load

import (
	"context"
	"fmt"
	"runtime/pprof"
	"time"

	"github.com/rprtr258/cpuload/internal/core"
	"github.com/rprtr258/cpuload/internal/errors"
)

// Period of a single busy+idle cycle.
const Period = 10_000 * time.Microsecond

var (
	ErrWorkerExited     = errors.New("worker exited before being cancelled")
	ErrAlreadyCancelled = errors.New("worker already cancelled")
	ErrWorkerPanicked   = errors.New("worker panicked")
)

// Worker is a handle to a running duty-cycle loop. It must be cancelled and
// waited by its owner.
type Worker struct {
	cancel chan struct{}
	done   chan struct{}
	err    error // written before done is closed
	name   string
}

// Start begins spinning immediately. Load percent above 100 is a programming
// error and panics.
func Start(loadPercent uint8, name string) *Worker {
	return start(loadPercent, name, nil)
}

// start is Start with hook called at the beginning of every period.
func start(loadPercent uint8, name string, beforePeriod func()) *Worker {
	if loadPercent > core.MaxLoadPercent {
		panic(fmt.Sprintf("load percent must be in [0, %d], got %d", core.MaxLoadPercent, loadPercent))
	}

	w := &Worker{
		cancel: make(chan struct{}, 1),
		done:   make(chan struct{}),
		err:    nil,
		name:   name,
	}
	go w.run(busyDuration(loadPercent), beforePeriod)
	return w
}

func (w *Worker) Name() string {
	return w.name
}

// Cancel requests worker to stop. It does not block. Cancel must be called
// exactly once per worker.
func (w *Worker) Cancel() error {
	select {
	case <-w.done:
		return errors.Wrapf(ErrWorkerExited, "cancel %s", w.name)
	default:
	}

	select {
	case w.cancel <- struct{}{}:
		return nil
	default:
		return errors.Wrapf(ErrAlreadyCancelled, "cancel %s", w.name)
	}
}

// Wait blocks until worker loop returns. Returned error is non-nil only if
// the loop died abnormally.
func (w *Worker) Wait() error {
	<-w.done
	return w.err
}

func (w *Worker) run(busy time.Duration, beforePeriod func()) {
	defer close(w.done)
	defer func() {
		if r := recover(); r != nil {
			w.err = errors.Wrapf(ErrWorkerPanicked, "%s: %v", w.name, r)
		}
	}()

	pprof.Do(context.Background(), pprof.Labels("worker", w.name), func(context.Context) {
		dutyCycle(w.cancel, busy, beforePeriod)
	})
}

func busyDuration(loadPercent uint8) time.Duration {
	return time.Duration(loadPercent) * 100 * time.Microsecond
}

func dutyCycle(cancel <-chan struct{}, busy time.Duration, beforePeriod func()) {
	idle := Period - busy

	timer := time.NewTimer(Period)
	defer timer.Stop()

	for {
		if beforePeriod != nil {
			beforePeriod()
		}

		start := time.Now()
		for {
			select {
			case <-cancel:
				return
			default:
			}

			if time.Since(start) > busy {
				break
			}
		}

		if idle <= 0 {
			continue
		}

		timer.Reset(idle)
		select {
		case <-cancel:
			return
		case <-timer.C:
		}
	}
}
