// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/humantype/internal/api"
	"github.com/xkilldash9x/humantype/internal/config"
	"github.com/xkilldash9x/humantype/internal/humanoid"
	"github.com/xkilldash9x/humantype/internal/keyboard"
	"github.com/xkilldash9x/humantype/internal/metrics"
	"github.com/xkilldash9x/humantype/internal/session"
	"github.com/xkilldash9x/humantype/internal/ws"
)

func newServeCmd(a *app) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface",
		Long: `Starts the helper that a web UI drives over HTTP. Typing sessions are
started with POST /type and tuned live through /config and /livewpm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}

	flags := serveCmd.Flags()
	flags.String("listen", "", "address to listen on (default 127.0.0.1:5000)")
	flags.String("backend", "", "key emission backend: "+fmt.Sprint(keyboard.Backends()))
	flags.String("ui-dir", "", "directory of web UI files to serve at /")
	a.bind(serveCmd, "server.listen_addr", "listen")
	a.bind(serveCmd, "emitter.backend", "backend")
	a.bind(serveCmd, "server.ui_dir", "ui-dir")
	return serveCmd
}

// runServe runs the control surface, the status stream and the config
// watcher until ctx is cancelled or one of them fails.
func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	typing, err := cfg.Typing().Humanoid()
	if err != nil {
		return err
	}
	emitter, err := keyboard.New(cfg.Emitter().Backend, logger)
	if err != nil {
		return err
	}

	recorder := metrics.New()
	ctrl, err := session.New(emitter, typing, logger, session.WithObserver(recorder))
	if err != nil {
		return err
	}
	hub := ws.New(ctrl, cfg.Server().StatusInterval, logger)
	srv := api.New(ctrl, cfg.Server(), logger,
		api.WithMetrics(recorder.Handler()),
		api.WithStatusStream(hub))

	logger.Info("Starting humantype",
		zap.String("version", Version),
		zap.String("listen", cfg.Server().ListenAddr),
		zap.String("backend", cfg.Emitter().Backend))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if path := a.v.ConfigFileUsed(); path != "" {
		g.Go(func() error {
			return config.Watch(gctx, path, logger, func(c *config.Config) {
				applyTyping(ctrl, c.Typing(), logger)
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server().ShutdownTimeout)
		defer cancel()
		if err := ctrl.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Typing session did not stop in time", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("humantype stopped")
	return nil
}

// applyTyping replaces the live knobs with a reloaded typing section. A
// running session picks them up at its next character.
func applyTyping(ctrl *session.Controller, tc config.TypingConfig, logger *zap.Logger) {
	next, err := tc.Humanoid()
	if err != nil {
		logger.Warn("Ignoring invalid typing section", zap.Error(err))
		return
	}
	if _, err := ctrl.UpdateConfig(func(humanoid.Config) (humanoid.Config, error) {
		return next, nil
	}); err != nil {
		logger.Warn("Ignoring invalid typing section", zap.Error(err))
		return
	}
	logger.Info("Typing config reloaded", zap.Int("wpm", next.WPM), zap.Bool("strict", next.Strict))
}
