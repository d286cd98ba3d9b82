package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	"github.com/goliatone/go-dialogform/pkg/render"
)

func newRenderCommand(root *rootOptions) *cobra.Command {
	var (
		rawMode    string
		renderer   string
		output     string
		standalone bool
		prefix     string
	)
	cmd := &cobra.Command{
		Use:   "render <entity-type> [entity-id]",
		Short: "Render a dialog once and print it",
		Example: `  dialogform render application app-ledger
  dialogform render capability --renderer tui
  dialogform render application app-ledger --mode edit --output ledger.html`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := orchestrator.Request{
				EntityType:   args[0],
				Renderer:     renderer,
				ThemeName:    root.cfg.Theme.Name,
				ThemeVariant: root.cfg.Theme.Variant,
				RenderOptions: render.RenderOptions{
					ActionPrefix: prefix,
					Standalone:   standalone,
				},
			}
			if len(args) == 2 {
				req.EntityID = args[1]
			}
			if rawMode != "" {
				m, err := mode.Parse(rawMode)
				if err != nil {
					return err
				}
				req.Mode = m
			}

			a, err := root.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.orch.Close()

			body, err := a.orch.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "dialog written to %s\n", output)
			return err
		},
	}
	cmd.Flags().StringVar(&rawMode, "mode", "", "dialog mode: view, edit or create (default view, create without id)")
	cmd.Flags().StringVar(&renderer, "renderer", "html", "renderer name: html or tui")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&standalone, "standalone", true, "wrap HTML output in a full document")
	cmd.Flags().StringVar(&prefix, "action-prefix", "", "URL prefix of the HTML form actions")
	return cmd
}
