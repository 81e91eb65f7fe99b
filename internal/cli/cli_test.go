package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shoenig/test"
	"github.com/shoenig/test/must"
	"github.com/spf13/afero"

	"github.com/rprtr258/cpuload/internal/core"
	"github.com/rprtr258/cpuload/internal/errors"
)

func execute(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp(fs)
	app.SetArgs(args)
	app.SetOut(&out)
	err := app.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, afero.NewMemMapFs(), "version")
	must.NoError(t, err)
	test.EqOp(t, core.Version+"\n", out)
}

func TestInvalidConfig(t *testing.T) {
	for name, args := range map[string][]string{
		"load above 100":      {"--load-percent", "150"},
		"load above 255":      {"--load-percent", "300"},
		"negative threads":    {"--threads", "-1"},
		"threads above max":   {"--threads", "4097"},
		"absurd threads":      {"--threads", "1099511627776"},
		"zero duration":       {"--duration-seconds", "0"},
		"unknown flag":        {"--cores", "4"},
		"file load above 100": {"--config", "/load.jsonnet"},
	} {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			must.NoError(t, afero.WriteFile(fs, "/load.jsonnet", []byte(`{load_percent: 101}`), 0o644))

			start := time.Now()
			_, err := execute(t, fs, args...)
			test.ErrorIs(t, err, core.ErrInvalidConfig)
			test.Less(t, 100*time.Millisecond, time.Since(start))
		})
	}
}

func TestUnexpectedArgs(t *testing.T) {
	_, err := execute(t, afero.NewMemMapFs(), "now")
	test.Error(t, err)
	test.False(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, afero.NewMemMapFs(), "--config", "/missing.jsonnet")
	test.Error(t, err)
	test.False(t, errors.Is(err, core.ErrInvalidConfig))
}

func TestRunFromFlags(t *testing.T) {
	start := time.Now()
	_, err := execute(t, afero.NewMemMapFs(), "--threads", "2", "--load-percent", "0", "--duration-seconds", "1")
	must.NoError(t, err)
	test.GreaterEq(t, time.Second, time.Since(start))
}

func TestRunFromConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	must.NoError(t, afero.WriteFile(fs, "/load.jsonnet", []byte(`{threads: 2, load_percent: 150, duration_seconds: 1}`), 0o644))

	// flag overrides invalid value from the file
	start := time.Now()
	_, err := execute(t, fs, "-f", "/load.jsonnet", "--load-percent", "10")
	must.NoError(t, err)
	test.GreaterEq(t, time.Second, time.Since(start))
}
