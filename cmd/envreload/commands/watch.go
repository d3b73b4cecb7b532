package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/envreload/internal/adapters/watcher"
	"go.trai.ch/envreload/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Reload roots whenever their descriptor or watch files change",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			initial, _ := cmd.Flags().GetBool("initial")
			window, _ := cmd.Flags().GetDuration("debounce")

			return c.app.Watch(cmd.Context(), args, app.WatchOptions{
				ConfigPath: configPath,
				Initial:    initial,
				Window:     window,
			})
		},
	}
	cmd.Flags().BoolP("initial", "i", false, "Reload every root once before watching")
	cmd.Flags().Duration("debounce", watcher.DefaultDebounceWindow, "Quiet period before a burst of changes triggers a reload")
	return cmd
}
