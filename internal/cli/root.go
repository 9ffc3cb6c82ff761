// Package cli implements the quizctl commands using Cobra.
package cli

import (
	"context"
	"fmt"
	"os"

	"wiki-quiz/internal/bootstrap"
	"wiki-quiz/internal/config"
	"wiki-quiz/internal/domain"
	"wiki-quiz/internal/logger"
	"wiki-quiz/internal/service"

	"github.com/spf13/cobra"
)

// ServiceFactory opens the service for one command run. The returned func releases it.
type ServiceFactory func(ctx context.Context) (service.QuizService, func() error, error)

type options struct {
	output  string
	factory ServiceFactory
}

// NewRootCommand builds the quizctl command tree.
func NewRootCommand(factory ServiceFactory) *cobra.Command {
	opts := &options{factory: factory}

	root := &cobra.Command{
		Use:   "quizctl",
		Short: "quizctl — generate and inspect article quizzes",
		Long: `quizctl runs the quiz pipeline against the configured database and
language model without going through the HTTP server.

Usage:
  quizctl generate <url> [--refresh]
  quizctl history [--limit N] [--offset N]
  quizctl show <id>
  quizctl batch --file urls.txt`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case outputJSON, outputYAML, outputTable:
				return nil
			default:
				return fmt.Errorf("unsupported output format %q (json, yaml or table)", opts.output)
			}
		},
	}
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: json, yaml or table")

	root.AddCommand(newGenerateCommand(opts), newHistoryCommand(opts), newShowCommand(opts), newBatchCommand(opts))
	return root
}

// Execute runs quizctl with the configured backends.
func Execute() {
	if err := NewRootCommand(defaultFactory).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitCode(err))
	}
}

// Process exit codes, so scripts can tell a bad article from a model outage.
const (
	ExitFailure          = 1
	ExitFetchFailed      = 2
	ExitGenerationFailed = 3
	ExitNotFound         = 4
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case domain.IsFetchError(err):
		return ExitFetchFailed
	case domain.IsGenerationError(err):
		return ExitGenerationFailed
	case domain.IsNotFound(err):
		return ExitNotFound
	default:
		return ExitFailure
	}
}

func defaultFactory(ctx context.Context) (service.QuizService, func() error, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	// stdout carries the command output
	if err := logger.InitializeWithSink(cfg.Logger, os.Stderr); err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	comps, err := bootstrap.Build(ctx, cfg, logger.Get())
	if err != nil {
		return nil, nil, err
	}
	return comps.Service, func() error {
		_ = logger.Sync()
		return comps.Close()
	}, nil
}

// withService opens the service, runs fn and releases the service.
func (o *options) withService(ctx context.Context, fn func(service.QuizService) error) error {
	svc, release, err := o.factory(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if release != nil {
			_ = release()
		}
	}()
	return fn(svc)
}
