// Package cli implements the dialogform command.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-dialogform/internal/logging"
	"github.com/goliatone/go-dialogform/pkg/renderers/tui"
)

type rootOptions struct {
	configFile string
	v          *viper.Viper
	cfg        Config
	logger     *zap.Logger
	// prompts replaces the terminal prompts of the edit command.
	prompts tui.PromptDriver
}

// NewRootCommand builds the command tree. out receives command output.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut, &rootOptions{})
}

func newRootCommand(out, errOut io.Writer, opts *rootOptions) *cobra.Command {
	opts.v = newViper()

	root := &cobra.Command{
		Use:           "dialogform",
		Short:         "Render and edit entity dialogs",
		Long:          "dialogform opens entity records as dialogs: rendered to HTML or text, edited in the terminal or served over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts.v, opts.configFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default ./dialogform.yaml)")
	flags.String("catalog", "", "directory of catalog documents (default: embedded catalog)")
	flags.String("openapi", "", "OpenAPI document with x-dialog-entity schemas")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("theme", "", "theme name")
	flags.String("theme-variant", "", "theme variant")
	flags.String("theme-manifest", "", "theme manifest file")
	flags.Bool("seed", true, "load the demo records")
	bindFlags(opts.v, root, map[string]string{
		"catalog.dir":     "catalog",
		"catalog.openapi": "openapi",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"theme.name":      "theme",
		"theme.variant":   "theme-variant",
		"theme.manifest":  "theme-manifest",
		"seed":            "seed",
	})

	root.AddCommand(
		newRenderCommand(opts),
		newEditCommand(opts),
		newServeCommand(opts),
		newLintCommand(opts),
	)
	return root
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		f := cmd.PersistentFlags().Lookup(flag)
		if f == nil {
			f = cmd.Flags().Lookup(flag)
		}
		if f == nil {
			panic(fmt.Sprintf("cli: unknown flag %q", flag))
		}
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}

func (o *rootOptions) app(ctx context.Context) (*app, error) {
	return newApp(ctx, o.cfg, o.logger)
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "dialogform:", err)
		return 1
	}
	return 0
}
