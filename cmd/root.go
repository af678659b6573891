// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/humantype/internal/config"
	"github.com/xkilldash9x/humantype/internal/observability"
)

// app carries the state shared by every command of one invocation.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
	// bindings maps a command name to the viper keys its flags override.
	bindings map[string]map[string]string
}

// bind makes the named flag of cmd override the viper key when set.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	if a.bindings[cmd.Name()] == nil {
		a.bindings[cmd.Name()] = map[string]string{}
	}
	a.bindings[cmd.Name()][key] = flag
}

// NewRootCommand builds a fresh command tree. Each call gets its own viper
// instance, so flags never leak between executions.
func NewRootCommand() *cobra.Command {
	a := &app{
		v:        viper.New(),
		bindings: map[string]map[string]string{},
	}

	rootCmd := &cobra.Command{
		Use:     "humantype",
		Short:   "humantype types text with a human-like rhythm.",
		Version: Version,
		// Usage on every runtime error buries the actual message.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default is ./config.yaml, then ~/.humantype/config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "humantype version %s\n" .Version}}`)

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newTypeCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command line against ctx, which should be cancelled on
// SIGINT or SIGTERM.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initialize loads the configuration, applies flag overrides for cmd and
// sets up the global logger.
func (a *app) initialize(cmd *cobra.Command) error {
	config.SetDefaults(a.v)
	config.ConfigureEnv(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			a.v.AddConfigPath(filepath.Join(home, ".humantype"))
		}
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, flag := range a.bindings[cmd.Name()] {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		observability.InitializeLogger(config.NewDefaultConfig().Logger())
		return err
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded",
		zap.String("file", a.v.ConfigFileUsed()),
		zap.String("version", Version),
		zap.Int("pid", os.Getpid()))
	return nil
}
