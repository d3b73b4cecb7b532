package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/envreload/internal/app"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [roots...]",
		Short: "Show whether each root's cached profiles match its descriptor",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			return c.app.Status(cmd.Context(), args, app.StatusOptions{
				ConfigPath: configPath,
				Out:        cmd.OutOrStdout(),
			})
		},
	}
}
