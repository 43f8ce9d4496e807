package main

import (
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var dumpMetrics bool

	cmd := &cobra.Command{
		Use:   "run <request>...",
		Short: "Submit one request from the terminal and print the transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v)
			if err != nil {
				return err
			}

			key := a.cfg.SessionKey
			before := len(a.sessions.Snapshot(key).History)
			st, err := a.sessions.Submit(ctx, key, strings.Join(args, " "))
			if err != nil && len(st.History) <= before {
				return err
			}

			out := cmd.OutOrStdout()
			styles := newTranscriptStyles(isTerminal(out))
			if werr := writeTranscript(out, st.History[before:], styles); werr != nil {
				return werr
			}
			_, _ = fmt.Fprintln(out, styles.render(styles.meta, "sandbox: "+a.store.Root()))

			if dumpMetrics && a.registry != nil {
				if merr := writeMetrics(out, a.registry); merr != nil {
					return merr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics after the run")
	return cmd
}

// writeMetrics dumps every gathered family in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
