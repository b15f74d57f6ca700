// cmd/root.go
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/headerkit/internal/config"
	"github.com/xkilldash9x/headerkit/internal/observability"
)

// NewRootCommand builds a fresh command tree. A new instance per execution
// keeps flag state from leaking between runs.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:     "headerkit",
		Short:   "headerkit drives sticky page-header behavior in a live browser tab",
		Long: `headerkit attaches a sticky-header controller to a page loaded in a real
browser. It observes the header through the DevTools protocol, runs the
sticky-state machine in Go and writes the resulting attributes, theme color
and shared height measurements back into the page.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				// Fall back to a usable logger so the error itself is visible.
				observability.InitializeLogger(config.Default().Logger)
				return err
			}
			cfg = loaded
			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting headerkit", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newWatchCmd(func() *config.Config {
		if cfg == nil {
			return config.Default()
		}
		return cfg
	}))

	return rootCmd
}

// Execute runs the command tree against a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}
