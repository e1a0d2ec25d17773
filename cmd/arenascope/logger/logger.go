// Package logger wires arenascope's diagnostics. The TUI and the live
// allocator share one slog sink: the explorer passes L to the allocator via
// arena.WithLogger, so every split, coalesce and fit-mode change the engine
// emits lands in the same file as the UI events, in order.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DmitriyKolesnikM8O/arenakit/arena"
)

// L is the shared sink. It discards everything until Init enables a file.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures the sink.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for log files. Default: ~/.arenascope
	Scheme  string     // Namespaces the log file per allocator scheme
	Level   slog.Level // Minimum level; arena.LevelTrace captures everything
}

// Init opens the per-scheme log file and installs the handler. One session
// owns one file (arenascope-<scheme>.log, truncated on open), so a run's
// block-map history reads top to bottom without interleaving older sessions.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	dir := opts.LogDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".arenascope")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	name := "arenascope.log"
	if opts.Scheme != "" {
		name = "arenascope-" + opts.Scheme + ".log"
	}

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	L = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: renameLevels,
	}))
	return nil
}

// renameLevels maps the allocators' extended levels onto their contract
// names; slog would otherwise print them as DEBUG-4 and ERROR+4.
func renameLevels(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok {
		switch {
		case lvl <= arena.LevelTrace:
			a.Value = slog.StringValue("TRACE")
		case lvl >= arena.LevelCritical:
			a.Value = slog.StringValue("CRITICAL")
		}
	}
	return a
}
