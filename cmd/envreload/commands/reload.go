package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/envreload/internal/app"
)

func (c *CLI) newReloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload [roots...]",
		Short: "Rebuild the environment and stamp its cache with the descriptor mtime",
		Long: `Reload runs the rebuild tool for each named root (all configured roots when
none are given, the working directory when nothing is configured). Roots are
reloaded one after another and the first failure stops the run.`,
		Args: cobra.ArbitraryArgs,
		RunE: c.runReload,
	}
	addReloadFlags(cmd)
	return cmd
}

func addReloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("root", "r", "", "Reload this directory in addition to the named roots")
}

func (c *CLI) runReload(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	root, _ := cmd.Flags().GetString("root")

	return c.app.Reload(cmd.Context(), args, app.ReloadOptions{
		ConfigPath: configPath,
		Root:       root,
	})
}
