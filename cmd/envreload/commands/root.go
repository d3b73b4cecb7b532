// Package commands implements the CLI commands for envreload.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/envreload/internal/app"
	"go.trai.ch/envreload/internal/build"
)

// CLI represents the command line interface for envreload.
type CLI struct {
	app     Application
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Reload(ctx context.Context, names []string, opts app.ReloadOptions) error
	Status(ctx context.Context, names []string, opts app.StatusOptions) error
	Watch(ctx context.Context, names []string, opts app.WatchOptions) error
	ConfigureLogging(jsonOutput bool)
	ConfigureExecMode(flag string)
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	c := &CLI{app: a}

	rootCmd := &cobra.Command{
		Use:   "envreload [roots...]",
		Short: "Force-reload nix-direnv environments and keep their cache timestamps in sync",
		Long: `envreload rebuilds a direnv environment with nix-direnv's force flag set,
then stamps the .envrc and every cached profile with the same mtime so direnv
stops treating the cache as stale. Running it without a subcommand reloads.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			execMode, _ := cmd.Flags().GetString("exec-mode")
			c.app.ConfigureLogging(jsonOutput)
			c.app.ConfigureExecMode(execMode)
		},
		RunE: c.runReload,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to envreload.yaml (default: discovered from the working directory)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().String("exec-mode", "auto", "How the rebuild tool is attached: auto, pty, or pipe")
	addReloadFlags(rootCmd)

	c.rootCmd = rootCmd

	rootCmd.AddCommand(c.newReloadCmd())
	rootCmd.AddCommand(c.newStatusCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
