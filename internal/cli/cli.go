package cli

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/rprtr258/cpuload/internal/config"
	"github.com/rprtr258/cpuload/internal/core"
	"github.com/rprtr258/cpuload/internal/errors"
	"github.com/rprtr258/cpuload/internal/load"
)

func readConfigFile(fs afero.Fs, cmd *cobra.Command, filename string) (config.File, error) {
	if cmd.Flags().Lookup("config").Changed {
		return config.Load(fs, filename)
	}

	return config.LoadDefault(fs)
}

func newApp(fs afero.Fs) *cobra.Command {
	var flags config.Flags
	var configFile string
	var debug bool
	cmd := &cobra.Command{
		Use:           "cpuload",
		Short:         "load cpu cores to target percent",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := readConfigFile(fs, cmd, configFile)
			if err != nil {
				return errors.Wrap(err, "read config")
			}

			config.SetupLogger(os.Stderr, debug || (file.Debug != nil && *file.Debug))
			log.Debug().Stringer("file", file).Msg("config file values")

			flags.SetThreads = cmd.Flags().Lookup("threads").Changed
			flags.SetLoadPercent = cmd.Flags().Lookup("load-percent").Changed
			flags.SetDurationSeconds = cmd.Flags().Lookup("duration-seconds").Changed

			cfg, err := config.Merge(file, flags)
			if err != nil {
				return err
			}

			return load.New().Run(cmd.Context(), cfg)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Wrapf(core.ErrInvalidConfig, "%s", err.Error())
	})
	cmd.Flags().UintVar(&flags.Threads, "threads", 1, "number of threads to use")
	cmd.Flags().Uint8Var(&flags.LoadPercent, "load-percent", core.MaxLoadPercent, "target load (in percent) for each thread")
	cmd.Flags().UintVar(&flags.DurationSeconds, "duration-seconds", 0, "duration to run, will run indefinitely if not set")
	cmd.Flags().StringVarP(&configFile, "config", "f", "", "jsonnet config file to use")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	cmd.AddCommand(newCmdVersion())
	return cmd
}

// Run executes command line, argv[0] is program name.
func Run(ctx context.Context, argv []string) error {
	app := newApp(afero.NewOsFs())
	app.SetArgs(argv[1:])
	return app.ExecuteContext(ctx)
}
