package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rabbitops/rmqcheck/internal/config"
	"github.com/rabbitops/rmqcheck/internal/engine"
	"github.com/rabbitops/rmqcheck/internal/models"
	"github.com/rabbitops/rmqcheck/internal/output"
	"github.com/rabbitops/rmqcheck/internal/rabbit"
	"github.com/rabbitops/rmqcheck/internal/version"
)

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "rmqcheck",
		Short:         "RabbitMQ queue length and policy check for monitoring hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newDoctorCmd(logger))
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check queue lengths and policies, print one status line, exit 0/1/2",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigOrExit(configPath, logger)
			if err != nil {
				return err
			}

			code, err := runCheck(cmd.Context(), cfg, rabbit.NewClient(cfg, logger), cmd.OutOrStdout())
			if err != nil {
				// Internal fault — let main's barrier report it.
				return err
			}
			os.Exit(code)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to config")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

// loadConfigOrExit loads the configuration. A missing file is fatal with the
// dedicated exit code 3, outside the OK/WARNING/CRITICAL space; every other
// load failure is returned for the fault barrier.
func loadConfigOrExit(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path, logger)
	if errors.Is(err, config.ErrConfigMissing) {
		logger.Error("configuration file does not exist", "path", path)
		os.Exit(models.ExitConfigMissing)
	}
	return cfg, err
}

// runCheck performs one complete check: a single fetch, one evaluation pass,
// one status line to stdout. It returns the process exit code.
//
// A classified fetch failure becomes a critical outcome (a broken broker
// connection is the worst possible signal). Any other error is an internal
// fault and is returned unprinted; callers route it to the fault barrier.
func runCheck(ctx context.Context, cfg *config.Config, fetcher rabbit.QueueFetcher, stdout io.Writer) (int, error) {
	var outcome models.Outcome

	records, err := fetcher.ListQueues(ctx, cfg.VHost)
	if err != nil {
		var ferr *rabbit.FetchError
		if !errors.As(err, &ferr) {
			return 0, err
		}
		outcome = engine.FetchFailureOutcome(ferr)
	} else {
		outcome = engine.Evaluate(records, cfg.RuleSet())
	}

	fmt.Fprintln(stdout, output.StatusLine(outcome, cfg.OutputFormat))
	return outcome.Severity.ExitCode(), nil
}
