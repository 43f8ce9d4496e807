package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sitesmith/pkg/mcpserver"
)

func newMCPCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the workflow as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}
			server := mcpserver.NewServer(a.sessions, a.store, a.cfg.SessionKey)
			return server.ServeStdio(ctx, cmd.InOrStdin(), os.Stdout)
		},
	}
}
