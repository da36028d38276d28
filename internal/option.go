package internal

// Mode selects how the application runs.
type Mode int

const (
	// ModeDaemon runs the sync loop, watcher and HTTP API until cancelled.
	ModeDaemon Mode = iota
	// ModeOnce performs a single sync pass and exits.
	ModeOnce
	// ModeMCP runs the sync loop and serves MCP tools on stdin/stdout.
	ModeMCP
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   Mode
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode.
func WithMode(mode Mode) Option {
	return func(a *application) {
		a.mode = mode
	}
}
