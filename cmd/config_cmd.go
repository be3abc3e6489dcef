package cmd

import (
	"fmt"
	"os"

	"github.com/cyberinferno/gamesession/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and generate configuration",
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(configPath),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output == "" {
				return config.WriteDefault(cmd.OutOrStdout())
			}

			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}

			f, err := os.OpenFile(output, flags, 0o644)
			if err != nil {
				return fmt.Errorf("create config file: %w", err)
			}

			if err := config.WriteDefault(f); err != nil {
				_ = f.Close()
				return err
			}

			if err := f.Close(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write instead of stdout")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}

func newConfigShowCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after file and environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(viper.New(), *configPath)
			if err != nil {
				return err
			}

			if cfg.Directory.RedisPassword != "" {
				cfg.Directory.RedisPassword = "********"
			}

			return config.Write(cmd.OutOrStdout(), cfg)
		},
	}
}
