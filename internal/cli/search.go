package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cheesefinder/internal/domain"
	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/finder"
	"cheesefinder/internal/logging"
	"cheesefinder/internal/rx"
	"cheesefinder/internal/ui/views"
)

func newSearchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Run one search without the interface and print the matches",
		Long: `search presses the search button once with the given query and prints
every match on its own line. The summary goes to stderr.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, strings.Join(args, " "))
		},
	}
}

// printer presents search outcomes on the command line
type printer struct {
	out    io.Writer
	status io.Writer
	done   chan error
}

func newPrinter(out, status io.Writer) *printer {
	return &printer{out: out, status: status, done: make(chan error, 1)}
}

func (p *printer) ShowProgress() {
	fmt.Fprintln(p.status, "Searching...")
}

func (p *printer) HideProgress() {}

func (p *printer) ShowResult(rs domain.ResultSet) {
	for _, name := range rs.Items {
		fmt.Fprintln(p.out, name)
	}
	fmt.Fprintln(p.status, views.Summary(rs.Query, rs.Len(), rs.Took))
	p.finish(nil)
}

func (p *printer) ShowError(err error) {
	p.finish(err)
}

func (p *printer) finish(err error) {
	select {
	case p.done <- err:
	default:
	}
}

func runSearch(cmd *cobra.Command, opts *options, query string) error {
	ctx := cmd.Context()

	cfg, err := opts.loadConfig(cmd)
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

	loop := rx.NewLoop("main", rx.WithLogger(logger))
	defer loop.Close()
	pool, err := rx.NewPool("search", cfg.Search.Workers, rx.WithLogger(logger))
	if err != nil {
		return err
	}
	defer pool.Release()

	pr := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	f, err := finder.NewFinder(engine, pr, loop, pool, finderOptions(cfg, finder.VariantButton, bus, logger)...)
	if err != nil {
		return err
	}
	if err := f.Start(finder.Sources{Clicks: rx.Just(query)}); err != nil {
		return err
	}
	defer f.Stop()

	select {
	case err := <-pr.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
