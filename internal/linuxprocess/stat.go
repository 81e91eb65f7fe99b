package linuxprocess

import (
	"os"
	"time"

	"github.com/rprtr258/fun"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/rprtr258/cpuload/internal/errors"
)

type Stat struct {
	Threads int32
	CPUTime time.Duration // user + system, tick resolution
}

// Self returns stat of current process.
func Self() (Stat, error) {
	return Of(os.Getpid())
}

func Of(pid int) (Stat, error) {
	p, err := process.NewProcess(int32(pid)) //nolint:gosec // pid fits int32
	if err != nil {
		return fun.Zero[Stat](), errors.Wrapf(err, "find process %d", pid)
	}

	threads, err := p.NumThreads()
	if err != nil {
		return fun.Zero[Stat](), errors.Wrap(err, "get threads count")
	}

	times, err := p.Times()
	if err != nil {
		return fun.Zero[Stat](), errors.Wrap(err, "get cpu times")
	}

	return Stat{
		Threads: threads,
		CPUTime: time.Duration((times.User + times.System) * float64(time.Second)),
	}, nil
}
