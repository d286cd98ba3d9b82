package tui

import "go.uber.org/zap"

// Theme holds the prefixes used when printing dialogs and messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
	TokenMarker string
}

// DefaultTheme is plain ASCII so output stays readable in logs.
var DefaultTheme = Theme{
	InfoPrefix:  "> ",
	ErrorPrefix: "! ",
	TokenMarker: "->",
}

// Option configures the runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithTheme applies message prefixes to both the runner and its text
// renderer.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
		r.text = NewRenderer(theme)
	}
}

// WithLogger sets the logger used for actions.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}
