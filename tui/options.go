package tui

import (
	"go.uber.org/zap"

	"github.com/cboone/lazynode"
)

type options struct {
	args         []string
	width        int
	height       int
	env          []string
	dir          string
	tmuxPath     string
	historyLimit int
	logger       *zap.Logger
	session      []lazynode.Option
}

// Option configures a Terminal created by Open.
type Option func(*options)

// WithArgs sets the arguments passed to the binary.
func WithArgs(args ...string) Option {
	return func(o *options) { o.args = args }
}

// WithSize sets the terminal dimensions in columns and rows.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithEnv adds KEY=VALUE entries to the program's environment.
func WithEnv(env ...string) Option {
	return func(o *options) { o.env = append(o.env, env...) }
}

// WithDir sets the program's working directory.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithTmuxPath sets the tmux binary. See TmuxEnv for the fallback.
func WithTmuxPath(path string) Option {
	return func(o *options) { o.tmuxPath = path }
}

// WithHistoryLimit sets the scrollback history limit. Zero keeps 10000.
func WithHistoryLimit(limit int) Option {
	return func(o *options) { o.historyLimit = limit }
}

// WithLogger logs tmux commands and handle events to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSessionOptions configures the terminal's lazynode session, for
// example its wait policy.
func WithSessionOptions(opts ...lazynode.Option) Option {
	return func(o *options) { o.session = append(o.session, opts...) }
}

const (
	defaultWidth        = 80
	defaultHeight       = 24
	defaultHistoryLimit = 10000
)

func defaultOptions() options {
	return options{
		width:        defaultWidth,
		height:       defaultHeight,
		historyLimit: defaultHistoryLimit,
	}
}
