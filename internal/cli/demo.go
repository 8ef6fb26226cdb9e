package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cheesefinder/internal/logging"
	"cheesefinder/internal/rx"
)

func newDemoCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Show a stream hopping between a worker and the main loop",
		Long: `demo emits 2, 3, 4 and 7 on a worker, doubles them, keeps the multiples
of three and prints what reaches the main loop. Only 6 makes it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, closeLog, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer closeLog()

			loop := rx.NewLoop("main", rx.WithLogger(logger))
			defer loop.Close()
			worker, err := rx.NewPool("worker", 1, rx.WithLogger(logger))
			if err != nil {
				return err
			}
			defer worker.Release()

			out := cmd.OutOrStdout()
			done := make(chan error, 1)

			values := rx.Just(2, 3, 4, 7).
				SubscribeOn(worker).
				DoOnNext(func(v int) { logger.Info("emitted", zap.Int("value", v)) })
			doubled := rx.Map(values, func(v int) int { return v * 2 }).
				Filter(func(v int) bool { return v%3 == 0 }).
				ObserveOn(loop)

			sub := doubled.Subscribe(rx.ObserverFuncs[int]{
				Next:     func(v int) { fmt.Fprintln(out, v) },
				Error:    func(err error) { done <- err },
				Complete: func() { done <- nil },
			})
			defer sub.Dispose()

			select {
			case err := <-done:
				return err
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		},
	}
}
