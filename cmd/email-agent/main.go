package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-email-agent/internal/adapters/cli"
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/core"
	"github.com/mikey/llm-email-agent/internal/di"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	flags, err := di.ParseFlags("email-agent", os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(1)
	}
	if err := flags.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx, flags, di.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if flags.History > 0 {
		err = container.Invoke(listHistory)
	} else {
		err = container.Invoke(run)
	}
	if err != nil {
		cause := dig.RootCause(err)
		if errors.Is(cause, config.ErrConfiguration) {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", cause)
		} else {
			fmt.Fprintf(os.Stderr, "Application error: %v\n", cause)
		}
		di.CloseResources(container)
		stop()
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	ctx context.Context,
	flags *di.CLIFlags,
	shell *cli.Shell,
	streams di.Streams,
	res *di.Resources,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer res.Close(logger)

	if flags.Interactive {
		return shell.RunInteractive(ctx, streams.In)
	}

	prompt := flags.Prompt
	if flags.Draft {
		prompt = cli.DraftPrompt(prompt)
	}
	_, err := shell.RunOnce(ctx, prompt)
	return err
}

// listHistory prints recorded runs without touching the LLM or mail provider
func listHistory(
	ctx context.Context,
	flags *di.CLIFlags,
	repo core.HistoryRepository,
	streams di.Streams,
	res *di.Resources,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer res.Close(logger)

	if repo == nil {
		return fmt.Errorf("history is disabled; set history.enabled to true")
	}
	return cli.PrintHistory(ctx, streams.Out, repo, flags.History, flags.JSON)
}
