// Package cli provides the cheesefinder command line. The root command
// runs the interactive finder; subcommands run the same pipelines
// headless.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cheesefinder/internal/cheese"
	"cheesefinder/internal/config"
	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/finder"
	"cheesefinder/internal/logging"
	"cheesefinder/internal/rx"
	"cheesefinder/internal/ui"
)

// options holds the persistent flags. Flags override the config file and
// the environment, but only when given.
type options struct {
	configPath string
	envFile    string
	variant    string
	debounce   time.Duration
	minLength  int
	latency    time.Duration
	matcher    string
	logFile    string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cheesefinder",
		Short: "Search the cheese catalogue as you type",
		Long: `cheesefinder searches a catalogue of cheeses without ever freezing the
screen: typing (after a pause) or pressing enter starts a search in the
background, a spinner shows while it runs and the matches replace it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	flags.StringVar(&opts.envFile, "env-file", ".env", "file of CHEESEFINDER_* overrides, empty to skip")
	flags.StringVar(&opts.variant, "variant", "", "query source: merged, button, textchange or blocking")
	flags.DurationVar(&opts.debounce, "debounce", 0, "quiet time after typing before a search")
	flags.IntVar(&opts.minLength, "min-length", 0, "shortest typed query that is searched")
	flags.DurationVar(&opts.latency, "latency", 0, "simulated search latency")
	flags.StringVar(&opts.matcher, "matcher", "", "matching strategy: contains or fuzzy")
	flags.StringVar(&opts.logFile, "log-file", "", "log file, empty to disable")

	cmd.AddCommand(
		newSearchCommand(opts),
		newDemoCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) configService() config.ConfigService {
	svcOpts := []config.Option{config.WithEnvFile(o.envFile)}
	if o.configPath != "" {
		svcOpts = append(svcOpts, config.WithPath(o.configPath))
	}
	return config.NewConfigService(svcOpts...)
}

// loadConfig loads file and environment settings, then applies the flags
// the user set.
func (o *options) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := o.configService().Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("variant") {
		cfg.Search.Variant = o.variant
	}
	if flags.Changed("debounce") {
		cfg.Search.DebounceMillis = int(o.debounce.Milliseconds())
	}
	if flags.Changed("min-length") {
		cfg.Search.MinQueryLength = o.minLength
	}
	if flags.Changed("latency") {
		cfg.Engine.LatencyMillis = int(o.latency.Milliseconds())
	}
	if flags.Changed("matcher") {
		cfg.Engine.Matcher = o.matcher
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEngine(cfg *config.Config, logger *zap.Logger) (*cheese.Engine, error) {
	return cheese.NewEngine(
		cheese.WithMatcher(cfg.Engine.Matcher),
		cheese.WithLatency(time.Duration(cfg.Engine.LatencyMillis)*time.Millisecond),
		cheese.WithMaxResults(cfg.Engine.MaxResults),
		cheese.WithLogger(logger.Named("cheese")),
	)
}

func finderOptions(cfg *config.Config, variant finder.Variant, bus eventbus.EventBus, logger *zap.Logger) []finder.Option {
	return []finder.Option{
		finder.WithVariant(variant),
		finder.WithBus(bus),
		finder.WithLogger(logger.Named("finder")),
		finder.WithCancelInFlight(cfg.Search.CancelInFlight),
		finder.WithRestartOnError(cfg.Search.RestartOnError),
	}
}

func runTUI(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	variant, err := finder.ParseVariant(cfg.Search.Variant)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	bus := eventbus.New(eventbus.WithLogger(logger.Named("eventbus")))
	defer bus.Close()

	engine, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}

	model := ui.NewModel(bus, cfg)
	defer model.Close()
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.SetProgram(p)

	uiSched := ui.NewScheduler(p, rx.WithLogger(logger.Named("ui")))
	defer uiSched.Close()

	pool, err := rx.NewPool("search", cfg.Search.Workers, rx.WithLogger(logger.Named("search")))
	if err != nil {
		return err
	}
	defer pool.Release()

	f, err := finder.NewFinder(engine, model, uiSched, pool, finderOptions(cfg, variant, bus, logger)...)
	if err != nil {
		return err
	}
	window := time.Duration(cfg.Search.DebounceMillis) * time.Millisecond
	if err := f.Start(finder.BusSources(bus, cfg.Search.MinQueryLength, window, uiSched)); err != nil {
		return err
	}
	defer f.Stop()

	logger.Info("starting UI", zap.Stringer("variant", variant))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("running program: %w", err)
	}
	logger.Info("UI exited normally")
	return nil
}
