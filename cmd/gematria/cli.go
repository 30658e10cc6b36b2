package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/gematria-field/api/internal/cipher"
	"github.com/gematria-field/api/internal/debounce"
	"github.com/gematria-field/api/internal/di"
	"github.com/gematria-field/api/internal/numprops"
	"github.com/gematria-field/api/internal/platform/config"
	"github.com/gematria-field/api/internal/platform/observability"
	"github.com/gematria-field/api/internal/services"
)

// runtime owns the lazily built container shared by one CLI invocation.
type runtime struct {
	stdin      io.Reader
	env        map[string]string
	configOpts []config.Option

	logger    *zap.Logger
	container *di.Container
}

// open loads configuration with the global flags applied and builds the container once.
func (rt *runtime) open(c *cli.Context) (*di.Container, error) {
	if rt.container != nil {
		return rt.container, nil
	}
	logger, err := observability.NewCLILogger(c.String("log-level"))
	if err != nil {
		return nil, err
	}
	rt.logger = logger

	env := make(map[string]string, len(rt.env)+2)
	maps.Copy(env, rt.env)
	env["API_STORE_DRIVER"] = c.String("store")
	if path := strings.TrimSpace(c.String("db")); path != "" {
		env["API_SQLITE_PATH"] = path
	}
	opts := append(append([]config.Option{}, rt.configOpts...), config.WithEnvMap(env))
	cfg, err := config.Load(c.Context, opts...)
	if err != nil {
		return nil, err
	}

	ciphers, err := cipher.BuildRegistry()
	if err != nil {
		return nil, err
	}
	reg, err := di.OpenRegistry(c.Context, cfg, ciphers, di.WithRegistryLogger(logger.Named("store")))
	if err != nil {
		return nil, err
	}
	container, err := di.NewContainer(c.Context, cfg, ciphers, reg)
	if err != nil {
		_ = reg.Close(c.Context)
		return nil, err
	}
	rt.container = container
	return container, nil
}

func (rt *runtime) close(c *cli.Context) error {
	var err error
	if rt.container != nil {
		err = rt.container.Close(context.WithoutCancel(c.Context))
		rt.container = nil
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}
	return err
}

// input joins the positional arguments, falling back to piped stdin.
func (rt *runtime) input(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if rt.stdin == nil {
		return "", nil
	}
	data, err := io.ReadAll(rt.stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime, out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "gematria",
		Usage:   "Gematria cipher calculator and phrase resonance search",
		Version: Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "store", Value: config.StoreSQLite, Usage: "Phrase store: sqlite|memory|firestore", EnvVars: []string{"GEMATRIA_STORE"}},
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (default ~/.gematria/gematria.db)", EnvVars: []string{"GEMATRIA_DB"}},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatText, Usage: "Output format: text|json|yaml"},
			&cli.StringFlag{Name: "log-level", Value: "warn", Usage: "Diagnostic log level on stderr"},
		},
		Commands: []*cli.Command{
			evalCmd(rt),
			searchCmd(rt),
			saveCmd(rt),
			unfoldCmd(rt),
			sidebarCmd(rt, "recent", "List the most recently saved phrases"),
			sidebarCmd(rt, "popular", "List the most searched phrases"),
			tuiCmd(rt),
		},
		After: rt.close,
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func ciphersFlag() cli.Flag {
	return &cli.StringFlag{Name: "ciphers", Aliases: []string{"c"}, Usage: "Comma-separated active ciphers (default from API_CIPHERS_ACTIVE)"}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "prime", Usage: "Only match values that are prime"},
		&cli.BoolFlag{Name: "perfect-square", Usage: "Only match values that are perfect squares"},
		&cli.BoolFlag{Name: "palindrome", Usage: "Only match values that read the same reversed"},
		&cli.BoolFlag{Name: "composite", Usage: "Only match values that are composite"},
	}
}

func filtersFrom(c *cli.Context) numprops.Filters {
	return numprops.Filters{
		Prime:         c.Bool("prime"),
		PerfectSquare: c.Bool("perfect-square"),
		Palindrome:    c.Bool("palindrome"),
		Composite:     c.Bool("composite"),
	}
}

func evalCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate a phrase under the active ciphers",
		ArgsUsage: "[phrase]",
		Flags:     []cli.Flag{ciphersFlag()},
		Action: func(c *cli.Context) error {
			text, err := rt.input(c)
			if err != nil {
				return outputError(err)
			}
			container, err := rt.open(c)
			if err != nil {
				return outputError(err)
			}
			out, err := container.Services.Calculator.Calculate(c.Context, services.CalculateCommand{
				Text:    text,
				Ciphers: parseList(c.String("ciphers")),
			})
			if err != nil {
				return outputError(err)
			}
			return emit(c, newEvalView(out))
		},
	}
}

func searchCmd(rt *runtime) *cli.Command {
	flags := append([]cli.Flag{
		ciphersFlag(),
		&cli.IntFlag{Name: "page-size", Usage: "Matches per page"},
		&cli.StringFlag{Name: "page-token", Usage: "Continue from a previous page"},
	}, filterFlags()...)
	return &cli.Command{
		Name:      "search",
		Usage:     "Find saved phrases sharing a value with a phrase or number",
		ArgsUsage: "[phrase|number]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			text, err := rt.input(c)
			if err != nil {
				return outputError(err)
			}
			container, err := rt.open(c)
			if err != nil {
				return outputError(err)
			}
			res, err := lookup(c.Context, container.Services, lookupRequest{
				Text:      text,
				Ciphers:   parseList(c.String("ciphers")),
				Filters:   filtersFrom(c),
				PageSize:  c.Int("page-size"),
				PageToken: c.String("page-token"),
			})
			if err != nil {
				return outputError(err)
			}
			view := newMatchView(res.Matches)
			view.Mode = res.Outcome.Mode
			if res.Outcome.Mode == services.ModeNumber {
				n := res.Outcome.Number
				view.Number = &n
			}
			return emit(c, view)
		},
	}
}

func saveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Save a phrase with its values under every cipher",
		ArgsUsage: "[phrase]",
		Action: func(c *cli.Context) error {
			text, err := rt.input(c)
			if err != nil {
				return outputError(err)
			}
			container, err := rt.open(c)
			if err != nil {
				return outputError(err)
			}
			res, err := container.Services.Phrases.Save(c.Context, services.SaveCommand{Phrase: text})
			if err != nil {
				return outputError(err)
			}
			return emit(c, saveView{Phrase: newPhraseView(res.Entry), AlreadySaved: res.AlreadySaved})
		},
	}
}

func unfoldCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "unfold",
		Usage:     "Derive difference sequences, tone map and factor chain of a phrase",
		ArgsUsage: "[phrase]",
		Flags: []cli.Flag{
			ciphersFlag(),
			&cli.StringFlag{Name: "aggregate", Aliases: []string{"a"}, Usage: "Two or three comma-separated ciphers concatenated into the aggregate"},
		},
		Action: func(c *cli.Context) error {
			text, err := rt.input(c)
			if err != nil {
				return outputError(err)
			}
			container, err := rt.open(c)
			if err != nil {
				return outputError(err)
			}
			out, err := container.Services.Unfold.Unfold(c.Context, services.UnfoldCommand{
				Text:             text,
				AggregateCiphers: parseList(c.String("aggregate")),
				Ciphers:          parseList(c.String("ciphers")),
			})
			if err != nil {
				return outputError(err)
			}
			return emit(c, newUnfoldView(out))
		},
	}
}

func sidebarCmd(rt *runtime, name, usage string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Number of phrases (default from API_SIDEBAR_LIMIT)"},
		},
		Action: func(c *cli.Context) error {
			container, err := rt.open(c)
			if err != nil {
				return outputError(err)
			}
			list := container.Services.Phrases.Recent
			if name == "popular" {
				list = container.Services.Phrases.Popular
			}
			entries, err := list(c.Context, c.Int("limit"))
			if err != nil {
				return outputError(err)
			}
			return emit(c, newListView(entries))
		},
	}
}

func tuiCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive calculator with live matches",
		Flags: []cli.Flag{
			ciphersFlag(),
			&cli.DurationFlag{Name: "debounce", Usage: "Quiet period before a round runs (300ms-500ms)"},
		},
		Action: func(c *cli.Context) error {
			container, err := rt.open(c)
			if err != nil {
				return outputError(err)
			}
			interval := container.Config.Debounce.Interval
			if c.IsSet("debounce") {
				interval = debounce.Clamp(c.Duration("debounce"))
			}
			return runTUI(c.Context, container, tuiOptions{
				Ciphers:  parseList(c.String("ciphers")),
				Interval: interval,
			})
		},
	}
}

// outputError formats error for CLI.
func outputError(err error) error {
	if code := errorCode(err); code != "" {
		return cli.Exit(fmt.Sprintf("[%s] %s", code, err.Error()), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func errorCode(err error) string {
	var invalid *config.ValidationError
	switch {
	case errors.Is(err, services.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, services.ErrUnknownCipher):
		return "unknown_cipher"
	case errors.Is(err, services.ErrTooManyCiphers):
		return "too_many_ciphers"
	case errors.Is(err, services.ErrInvalidNumber):
		return "invalid_number"
	case errors.Is(err, services.ErrInvalidAggregate):
		return "invalid_aggregate"
	case errors.Is(err, services.ErrPhraseTooLong):
		return "phrase_too_long"
	case errors.Is(err, services.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.As(err, &invalid):
		return "invalid_config"
	default:
		return ""
	}
}

// parseList splits a comma-separated flag value, dropping blanks.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
