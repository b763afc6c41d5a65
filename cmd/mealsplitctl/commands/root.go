// Package commands implements the mealsplitctl admin console.
//
// Split commands act on the store directly through the coordinator, so they
// bypass the creator check the RPC layer applies.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/mmynk/mealsplit/internal/app"
	"github.com/mmynk/mealsplit/internal/config"
	"github.com/mmynk/mealsplit/pkg/logging"
)

type rootOptions struct {
	configFile string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "mealsplitctl",
		Short: "Administer meal splits",
		Long: `mealsplitctl inspects and repairs meal splits using the same configuration
as the server (MEALSPLIT_* environment variables or --config).

Use "mealsplitctl [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML)")

	cmd.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newCompleteCmd(opts),
		newDeleteCmd(opts),
		newLeaveCmd(opts),
		newTokenCmd(opts),
	)
	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level)
	return cfg, nil
}

// openApp loads configuration and opens the backends. The caller must Close it.
func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg)
}
