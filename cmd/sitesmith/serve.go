package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sitesmith/pkg/webui"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat page and the generated website",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}

			opts := webui.Options{
				SessionKey:   a.cfg.SessionKey,
				Username:     a.cfg.WebUI.Username,
				PasswordHash: a.cfg.WebUI.PasswordHash,
				Model: webui.ModelStatus{
					Provider: a.client.Provider,
					Model:    a.client.GetModelName(),
					Offline:  a.client.Offline,
					Reason:   a.client.Reason,
				},
			}
			if a.registry != nil {
				opts.Gatherer = a.registry
			}

			server := webui.NewServer(a.sessions, a.store, opts)
			addr, err := server.StartServer(ctx, a.cfg.WebUI.Addr())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ sitesmith is serving on http://%s (sandbox: %s)\n", addr, a.store.Root())

			<-ctx.Done()
			a.logger.Info("Shutdown requested")
			return nil
		},
	}

	cmd.Flags().String("host", "", "web UI bind host")
	cmd.Flags().Int("port", 0, "web UI port")
	_ = v.BindPFlag(keyHost, cmd.Flags().Lookup("host"))
	_ = v.BindPFlag(keyPort, cmd.Flags().Lookup("port"))

	return cmd
}
