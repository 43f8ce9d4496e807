package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sitesmith/pkg/config"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			webUI := *cfg.WebUI
			if webUI.PasswordHash != "" {
				webUI.PasswordHash = "***"
			}
			cfg.WebUI = &webUI

			data, err := config.Encode(&cfg, config.Format(format))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
	show.Flags().StringVar(&format, "format", string(config.FormatYAML), "output format: yaml, json or toml")

	cmd.AddCommand(show)
	return cmd
}
