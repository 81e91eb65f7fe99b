package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/go-jsonnet"
	"github.com/google/go-jsonnet/ast"
	"github.com/joho/godotenv"
	"github.com/rprtr258/fun"
	"github.com/rprtr258/scuf"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/rprtr258/cpuload/internal/core"
	"github.com/rprtr258/cpuload/internal/errors"
)

// File - values read from config file, nil if not set
type File struct {
	Threads         *uint `json:"threads"`
	LoadPercent     *uint `json:"load_percent"`
	DurationSeconds *uint `json:"duration_seconds"`
	Debug           *bool `json:"debug"`
}

func SetupLogger(w io.Writer, debug bool) {
	level := fun.IF(debug, zerolog.DebugLevel, zerolog.InfoLevel)

	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits int
	}

	log.Logger = zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger().
		Output(zerolog.ConsoleWriter{ //nolint:exhaustruct // not needed
			Out:     w,
			NoColor: noColor,
			FormatLevel: func(i any) string {
				s, _ := i.(string)
				label := " " + strings.ToUpper(s) + " "
				if noColor {
					return label
				}

				bg := fun.Switch(s, scuf.BgRed).
					Case(scuf.BgBlue, zerolog.LevelInfoValue).
					Case(scuf.BgGreen, zerolog.LevelWarnValue).
					Case(scuf.BgYellow, zerolog.LevelErrorValue).
					End()

				return scuf.String(label, bg, scuf.FgBlack)
			},
			FormatTimestamp: func(i any) string {
				s, _ := i.(string)
				t, err := time.Parse(zerolog.TimeFieldFormat, s)
				if err != nil {
					return s
				}

				return fun.IF(noColor,
					t.Format("[15:04:05]"),
					scuf.String(t.Format("[15:04:05]"), scuf.ModFaint, scuf.FgWhite))
			},
		})
}

func newVM(fs afero.Fs) *jsonnet.VM {
	vm := jsonnet.MakeVM()
	vm.NativeFunction(&jsonnet.NativeFunction{
		Name: "dotenv",
		Func: func(args []any) (any, error) {
			if len(args) != 1 {
				return nil, errors.Newf("wrong number of arguments: %d", len(args))
			}

			filename, ok := args[0].(string)
			if !ok {
				return nil, errors.Newf("filename must be a string, got %T", args[0])
			}

			data, errRead := afero.ReadFile(fs, filename)
			if errRead != nil {
				return nil, errors.Wrapf(errRead, "read env file %q", filename)
			}

			env, errUnmarshal := godotenv.UnmarshalBytes(data)
			if errUnmarshal != nil {
				return nil, errors.Wrapf(errUnmarshal, "parse env file %q", filename)
			}

			res := make(map[string]any, len(env))
			for k, v := range env {
				res[k] = v
			}
			return res, nil
		},
		Params: ast.Identifiers{"filename"},
	})
	return vm
}

// Load evaluates jsonnet config file.
func Load(fs afero.Fs, filename string) (File, error) {
	snippet, errRead := afero.ReadFile(fs, filename)
	if errRead != nil {
		return fun.Zero[File](), errors.Wrapf(errRead, "read config file %q", filename)
	}

	jsonText, errEval := newVM(fs).EvaluateAnonymousSnippet(filename, string(snippet))
	if errEval != nil {
		return fun.Zero[File](), errors.Wrapf(errEval, "evaluate config file %q", filename)
	}

	var file File
	if errUnmarshal := json.Unmarshal([]byte(jsonText), &file); errUnmarshal != nil {
		return fun.Zero[File](), errors.Wrapf(core.ErrInvalidConfig, "config file %q: %s", filename, errUnmarshal.Error())
	}

	return file, nil
}

// LoadDefault reads default config file if it exists.
func LoadDefault(fs afero.Fs) (File, error) {
	filename := core.DefaultConfigFile()
	exists, errExists := afero.Exists(fs, filename)
	if errExists != nil {
		return fun.Zero[File](), errors.Wrapf(errExists, "check config file %q", filename)
	}

	if !exists {
		return fun.Zero[File](), nil
	}

	log.Debug().Str("file", filename).Msg("using default config file")
	return Load(fs, filename)
}

// Flags - values from command line, Set* tell whether flag was given explicitly
type Flags struct {
	Threads            uint
	LoadPercent        uint8
	DurationSeconds    uint
	SetThreads         bool
	SetLoadPercent     bool
	SetDurationSeconds bool
}

// Merge builds load config from file values overridden by explicit flags.
func Merge(file File, flags Flags) (core.LoadConfig, error) {
	threads := flags.Threads
	if file.Threads != nil && !flags.SetThreads {
		threads = *file.Threads
	}

	loadPercent := flags.LoadPercent
	if file.LoadPercent != nil && !flags.SetLoadPercent {
		if *file.LoadPercent > core.MaxLoadPercent {
			return fun.Zero[core.LoadConfig](), errors.Wrapf(core.ErrInvalidConfig,
				"load percent must be in [0, %d], got %d", core.MaxLoadPercent, *file.LoadPercent)
		}
		loadPercent = uint8(*file.LoadPercent)
	}

	duration := fun.Invalid[time.Duration]()
	switch {
	case flags.SetDurationSeconds:
		duration = fun.Valid(seconds(flags.DurationSeconds))
	case file.DurationSeconds != nil:
		duration = fun.Valid(seconds(*file.DurationSeconds))
	}

	cfg, err := core.NewLoadConfig(threads, loadPercent, duration)
	if err != nil {
		return fun.Zero[core.LoadConfig](), err
	}

	return cfg, nil
}

func seconds(n uint) time.Duration {
	return time.Duration(n) * time.Second //nolint:gosec // may overflow only on absurd durations
}

func (f File) String() string {
	show := func(p *uint) string {
		if p == nil {
			return "unset"
		}
		return fmt.Sprint(*p)
	}
	return fmt.Sprintf("threads=%s load_percent=%s duration_seconds=%s",
		show(f.Threads), show(f.LoadPercent), show(f.DurationSeconds))
}
