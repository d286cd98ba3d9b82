package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-dialogform/internal/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve dialogs over HTTP",
		Long: `serve exposes the catalog as HTML dialogs that work without JavaScript,
option lists as JSON under /options/{loader} and Prometheus metrics under /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.app(cmd.Context())
			if err != nil {
				return err
			}
			srv, err := server.New(a.orch,
				server.WithLogger(a.logger),
				server.WithOptionLoaders(a.loaders),
				server.WithRecords(a.store),
				server.WithTheme(a.cfg.Theme.Name, a.cfg.Theme.Variant),
				server.WithRequestTimeout(a.cfg.Server.Timeout),
			)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	bindFlags(root.v, cmd, map[string]string{
		"server.addr":    "addr",
		"server.timeout": "timeout",
	})
	return cmd
}
