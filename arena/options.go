package arena

import "log/slog"

// Config carries the construction parameters shared by the three schemes.
type Config struct {
	Upstream Upstream
	Logger   *slog.Logger
	Fit      FitMode
}

// Option customizes allocator construction.
type Option func(*Config)

// WithUpstream sets the provider the arena is acquired from. Defaults to
// DefaultUpstream().
func WithUpstream(u Upstream) Option {
	return func(c *Config) { c.Upstream = u }
}

// WithLogger sets the diagnostic sink. Nil (the default) disables logging.
func WithLogger(log *slog.Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithFitMode sets the initial fit mode. Defaults to FirstFit.
func WithFitMode(m FitMode) Option {
	return func(c *Config) { c.Fit = m }
}

// ApplyOptions resolves opts over the defaults.
func ApplyOptions(opts []Option) Config {
	cfg := Config{Upstream: DefaultUpstream(), Fit: FirstFit}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
