package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cyberinferno/gamesession/gameclient"
	"github.com/cyberinferno/gamesession/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newClientCmd() *cobra.Command {
	var (
		addr      string
		user      string
		delimiter string
		interval  time.Duration
		duration  time.Duration
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "client <scenario>...",
		Short: "Run client scenarios against a server",
		Long: "Run one or more client scenarios concurrently, each on its own connection.\n\nScenarios: " +
			strings.Join(gameclient.ScenarioNames(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(delimiter) != 1 {
				return fmt.Errorf("--delimiter must be exactly one byte, got %q", delimiter)
			}

			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := logger.NewConsoleLogger(cmd.ErrOrStderr(), "gamesession-client", level)
			defer log.Close()

			cfg := gameclient.DefaultConfig(addr)
			cfg.Delimiter = delimiter[0]

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := gameclient.ScenarioOptions{User: user, Interval: interval, Duration: duration}
			if err := gameclient.RunScenarios(ctx, cfg, args, opts, log); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d scenario(s) passed\n", len(args))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:5555", "server address")
	cmd.Flags().StringVar(&user, "user", "player", "user name sent in HELLO")
	cmd.Flags().StringVar(&delimiter, "delimiter", "|", "frame delimiter")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "pause between HELLOs in the idle scenario")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop long-running scenarios after this long (0 runs until interrupted)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every reply")

	return cmd
}
