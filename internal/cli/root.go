// Package cli wires the anivault command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/anivault/anivault/internal/config"
	"github.com/anivault/anivault/internal/di"
	"github.com/anivault/anivault/internal/observability"
	"github.com/anivault/anivault/internal/tools/common"
	"github.com/anivault/anivault/internal/tools/ui"
)

type options struct {
	envFile string
	ci      bool
	timeout time.Duration
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "anivault",
		Short:         "Anime catalog client with a local session API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file applied before the environment")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "deadline for one-shot commands")

	cmd.AddCommand(
		newServeCommand(opts),
		newLoginCommand(opts),
		newRegisterCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newCatalogCommand(opts),
	)
	return cmd
}

// environment is a wired container plus its teardown.
type environment struct {
	*di.Container
	logger *slog.Logger
	close  func()
}

func build(ctx context.Context, opts *options, logOut io.Writer) (*environment, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	logger, lp, err := observability.NewLogger(ctx, cfg, logOut)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	c, cleanup, err := di.InitializeContainer(ctx, cfg, logger, lp)
	if err != nil {
		if lp != nil {
			_ = lp.Shutdown(context.WithoutCancel(ctx))
		}
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	c.App.OnStop(cleanup)
	return &environment{
		Container: c,
		logger:    logger,
		close: func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.App.ShutdownTimeout)
			defer cancel()
			if err := c.App.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown failed", "error", err)
			}
		},
	}, nil
}

// step runs fn under a spinner, or plainly with a JSON summary in CI mode.
func step(cmd *cobra.Command, opts *options, title string, fn func(context.Context) ([]string, error)) error {
	if opts.ci {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()
		details, err := fn(ctx)
		common.WriteCIResult(cmd.OutOrStdout(), err == nil, title, details, err)
		return err
	}
	details, err := ui.Run(title, func(ctx context.Context) ([]string, error) {
		ctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		return fn(ctx)
	})
	if err == nil {
		for _, d := range details {
			fmt.Fprintln(cmd.OutOrStdout(), d)
		}
	}
	return err
}

// oneShot builds the app, restores the session, runs action and tears down.
func oneShot(cmd *cobra.Command, opts *options, title string, action func(context.Context, *environment) ([]string, error)) error {
	logOut := io.Writer(os.Stderr)
	if !opts.ci {
		logOut = io.Discard
	}
	return step(cmd, opts, title, func(ctx context.Context) ([]string, error) {
		env, err := build(ctx, opts, logOut)
		if err != nil {
			return nil, err
		}
		defer env.close()

		phase, startErr := env.App.Bootstrap(ctx)
		details := []string{"session: " + string(phase)}
		if startErr != nil {
			details = append(details, "startup: "+startErr.Error())
		}
		more, err := action(ctx, env)
		details = append(details, more...)
		for _, n := range env.Feed.Drain() {
			details = append(details, fmt.Sprintf("[%s] %s", n.Level, n.Message))
		}
		return details, err
	})
}
