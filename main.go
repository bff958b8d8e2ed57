package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/grove-shows/cmd"
	cmdconfig "github.com/mattsolo1/grove-shows/cmd/config"
	"github.com/mattsolo1/grove-shows/pkg/config"
)

var settings *config.Settings

func main() {
	rootCmd := &cobra.Command{
		Use:          "shows",
		Short:        "Browse a TV show library as a live tree",
		SilenceUsage: true,
	}
	cobra.OnInitialize(cmdconfig.InitConfig)
	cmdconfig.AddGlobalFlags(rootCmd)

	rootCmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		// This runs once before any subcommand
		s, err := cmdconfig.LoadSettings()
		if err != nil {
			return err
		}
		settings = s
		return nil
	}

	// Add subcommands
	rootCmd.AddCommand(cmd.NewTreeCmd(&settings))
	rootCmd.AddCommand(cmd.NewWatchCmd(&settings))
	rootCmd.AddCommand(cmd.NewImportCmd(&settings))
	rootCmd.AddCommand(cmd.NewExportCmd(&settings))
	rootCmd.AddCommand(cmd.NewForgetCmd(&settings))
	rootCmd.AddCommand(cmd.NewVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
