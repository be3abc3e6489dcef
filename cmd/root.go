// Package cmd implements the gamesessiond command line.
package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "gamesessiond",
		Short:         "Game session server and traffic client",
		Long:          "gamesessiond runs the HELLO/BYE/PUTOBJ session protocol over TCP, and can replay client scenarios against a running server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newClientCmd(),
		newConfigCmd(&configPath),
	)

	return rootCmd
}
