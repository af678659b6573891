// File: cmd/type.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/humantype/internal/api"
	"github.com/xkilldash9x/humantype/internal/keyboard"
	"github.com/xkilldash9x/humantype/internal/session"
)

type typeOptions struct {
	calibration string
	dryRun      bool
	delay       time.Duration
}

func newTypeCmd(a *app) *cobra.Command {
	opts := &typeOptions{}
	typeCmd := &cobra.Command{
		Use:   "type [file|-]",
		Short: "Type a file or stdin once, then exit",
		Long: `Types the given file, or stdin when the argument is "-" or missing, with
the configured rhythm. Focus the target window during the countdown.

With --dry-run nothing reaches the keyboard: the keystrokes are applied to an
in-memory buffer and the result is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runType(cmd, a, opts, args)
		},
	}

	flags := typeCmd.Flags()
	flags.Int("wpm", 0, "target words per minute")
	flags.Bool("strict", false, "exact pacing without jitter, pauses or typos")
	flags.Bool("typos", true, "inject and correct occasional typos")
	flags.String("model", "", "pacing model: drift or human")
	flags.String("backend", "", "key emission backend: "+fmt.Sprint(keyboard.Backends()))
	flags.StringVar(&opts.calibration, "calibration", "", "JSON file of calibration samples")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "type into memory and print the result")
	flags.DurationVar(&opts.delay, "delay", 3*time.Second, "countdown before typing starts")
	a.bind(typeCmd, "typing.wpm", "wpm")
	a.bind(typeCmd, "typing.strict", "strict")
	a.bind(typeCmd, "typing.typos", "typos")
	a.bind(typeCmd, "typing.model", "model")
	a.bind(typeCmd, "emitter.backend", "backend")
	return typeCmd
}

func runType(cmd *cobra.Command, a *app, opts *typeOptions, args []string) error {
	ctx := cmd.Context()
	logger := a.logger

	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	typing, err := a.cfg.Typing().Humanoid()
	if err != nil {
		return err
	}

	var (
		emitter keyboard.Emitter
		buffer  *keyboard.TextEmitter
	)
	if opts.dryRun {
		buffer = keyboard.NewTextEmitter()
		emitter = buffer
	} else if emitter, err = keyboard.New(a.cfg.Emitter().Backend, logger); err != nil {
		return err
	}

	ctrl, err := session.New(emitter, typing, logger)
	if err != nil {
		return err
	}
	if opts.calibration != "" {
		if err := calibrateFromFile(ctrl, opts.calibration); err != nil {
			return err
		}
	}

	if !opts.dryRun && opts.delay > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Typing starts in %s, focus the target window...\n", opts.delay)
		select {
		case <-time.After(opts.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if _, err := ctrl.Start(ctx, text); err != nil {
		return err
	}
	if err := ctrl.Wait(ctx); err != nil {
		// Interrupted: stop the worker and let it exit before returning.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server().ShutdownTimeout)
		defer cancel()
		if serr := ctrl.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("Typing session did not stop in time", zap.Error(serr))
		}
		return err
	}

	st := ctrl.Status()
	logger.Info("Typing finished",
		zap.String("outcome", string(st.Outcome)),
		zap.Int("typed", st.Typed),
		zap.Int("typos", st.TypoCount),
		zap.Float64("achieved_wpm", st.AchievedWPM))

	if buffer != nil {
		fmt.Fprint(cmd.OutOrStdout(), buffer.String())
	}
	if st.Outcome == session.OutcomeFailed {
		return fmt.Errorf("typing session %s failed after %d of %d characters", st.SessionID, st.Typed, st.Total)
	}
	return nil
}

func readInput(stdin io.Reader, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func calibrateFromFile(ctrl *session.Controller, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading calibration: %w", err)
	}
	samples, err := api.DecodeSamples(data)
	if err != nil {
		return fmt.Errorf("calibration %s: %w", path, err)
	}
	if _, err := ctrl.Calibrate(samples); err != nil {
		return fmt.Errorf("calibration %s: %w", path, err)
	}
	return nil
}
