// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Flameeyes/flameeyes-paperless-automation/internal/config"
)

func (a *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(a.configValidateCommand(), a.configDumpCommand())
	return cmd
}

func (a *cli) configValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "✓ %s is valid\n", cfg.Path)
			return nil
		},
	}
}

func (a *cli) configDumpCommand() *cobra.Command {
	format := "toml"
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration with secrets masked",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(_ *cobra.Command, _ []string) error {
			switch strings.ToLower(format) {
			case "toml", "yaml", "yml", "json":
			default:
				return usageErrorf("invalid value %q for --format: must be toml, yaml or json", format)
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			return dumpConfig(a, cfg, format)
		},
	}
	cmd.Flags().StringVar(&format, "format", format, "output format: toml, yaml or json")
	return cmd
}

func dumpConfig(a *cli, cfg *config.Config, format string) error {
	if err := cfg.Masked().Encode(a.stdout, format); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	return nil
}
