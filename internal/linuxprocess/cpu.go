package linuxprocess

import (
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/rprtr258/cpuload/internal/errors"
)

// LogicalCPUs returns number of cpu threads available on the machine.
func LogicalCPUs() (int, error) {
	n, err := cpu.Counts(true)
	if err != nil {
		return 0, errors.Wrap(err, "count logical cpus")
	}

	return n, nil
}
