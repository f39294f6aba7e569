package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rabbitops/rmqcheck/internal/config"
	"github.com/rabbitops/rmqcheck/internal/rabbit"
)

// DoctorResult is the structured output of rmqcheck doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable
// table (default).
type DoctorResult struct {
	Config struct {
		Path    string   `json:"path"`
		Present bool     `json:"present"`
		Valid   bool     `json:"valid"`
		Rules   int      `json:"rules"`
		Errors  []string `json:"errors,omitempty"`
	} `json:"config"`

	Broker struct {
		Endpoint  string `json:"endpoint,omitempty"`
		VHost     string `json:"vhost,omitempty"`
		Reachable bool   `json:"reachable"`
		Queues    int    `json:"queues"`
		Error     string `json:"error,omitempty"`
	} `json:"broker"`

	OverallHealthy bool `json:"overall_healthy"`
}

// fetcherFactory builds a QueueFetcher for a validated config. Tests swap it
// for a fake; production uses the management-API client.
type fetcherFactory func(cfg *config.Config) rabbit.QueueFetcher

func newDoctorCmd(logger *slog.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics (config file, broker reachability)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			factory := func(cfg *config.Config) rabbit.QueueFetcher {
				return rabbit.NewClient(cfg, logger)
			}
			result, err := runDoctor(cmd.Context(), configPath, factory, logger, cmd.OutOrStdout(), format)
			if err != nil {
				// Rendering failure — let the fault barrier handle it.
				return err
			}
			if !result.OverallHealthy {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to config")
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers must inspect result.OverallHealthy.
func runDoctor(ctx context.Context, configPath string, factory fetcherFactory, logger *slog.Logger, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, configPath, factory, logger)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

func collectDoctorResult(ctx context.Context, configPath string, factory fetcherFactory, logger *slog.Logger) DoctorResult {
	var result DoctorResult
	result.Config.Path = configPath

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		result.Config.Present = !errors.Is(err, config.ErrConfigMissing)
		result.Config.Errors = append(result.Config.Errors, err.Error())
		return result
	}
	result.Config.Present = true
	result.Config.Valid = true
	result.Config.Rules = len(cfg.Queues) + len(cfg.QueuePrefixes)

	result.Broker.Endpoint = cfg.BaseURL()
	result.Broker.VHost = cfg.VHost

	records, err := factory(cfg).ListQueues(ctx, cfg.VHost)
	if err != nil {
		result.Broker.Error = err.Error()
		return result
	}
	result.Broker.Reachable = true
	result.Broker.Queues = len(records)

	result.OverallHealthy = true
	return result
}

func renderDoctorTable(result DoctorResult, w io.Writer) {
	status := func(ok bool) string {
		if ok {
			return "ok"
		}
		return "FAIL"
	}

	fmt.Fprintf(w, "Config   %-6s  path=%s rules=%d\n",
		status(result.Config.Present && result.Config.Valid), result.Config.Path, result.Config.Rules)
	for _, e := range result.Config.Errors {
		fmt.Fprintf(w, "         error: %s\n", e)
	}

	fmt.Fprintf(w, "Broker   %-6s  endpoint=%s vhost=%q queues=%d\n",
		status(result.Broker.Reachable), result.Broker.Endpoint, result.Broker.VHost, result.Broker.Queues)
	if result.Broker.Error != "" {
		fmt.Fprintf(w, "         error: %s\n", result.Broker.Error)
	}

	fmt.Fprintf(w, "Overall  %s\n", status(result.OverallHealthy))
}
