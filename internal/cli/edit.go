package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/pkg/mode"
	"github.com/goliatone/go-dialogform/pkg/orchestrator"
	"github.com/goliatone/go-dialogform/pkg/renderers/tui"
)

func newEditCommand(root *rootOptions) *cobra.Command {
	var rawMode string
	cmd := &cobra.Command{
		Use:   "edit <entity-type> [entity-id]",
		Short: "Open a dialog in the terminal",
		Long:  "edit walks the dialog interactively: set fields, follow related records, save or delete.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := orchestrator.Request{EntityType: args[0]}
			if len(args) == 2 {
				req.EntityID = args[1]
				req.Mode = mode.Edit
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

			sess, err := a.orch.Open(cmd.Context(), req)
			if err != nil {
				return err
			}

			opts := []tui.Option{tui.WithLogger(a.logger)}
			if root.prompts != nil {
				opts = append(opts, tui.WithPromptDriver(root.prompts))
			} else {
				opts = append(opts, tui.WithPromptDriver(tui.NewSurveyDriver(cmd.OutOrStdout())))
			}
			err = tui.NewRunner(opts...).Run(cmd.Context(), sess)
			if errors.Is(err, tui.ErrAborted) {
				a.logger.Debug("edit aborted", zap.String("session", sess.ID()))
				_, err = fmt.Fprintln(cmd.ErrOrStderr(), "aborted")
				return err
			}
			return err
		},
	}
	cmd.Flags().StringVar(&rawMode, "mode", "", "dialog mode: view, edit or create (default edit, create without id)")
	return cmd
}
