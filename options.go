package lazynode

import (
	"time"

	"go.uber.org/zap"

	"github.com/cboone/lazynode/config"
	"github.com/cboone/lazynode/policy"
	"github.com/cboone/lazynode/ui"
)

type options struct {
	registry *policy.Registry
	logger   *zap.Logger
	hook     Hook
	hookSet  bool
	settings policy.Settings
	hasCfg   bool
}

// Option configures a Session created by NewSession.
type Option func(*options)

// WithRegistry shares reg between sessions instead of giving the session
// a private registry.
func WithRegistry(reg *policy.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLogger sets the logger used by the default hook.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHook replaces the default logging hook. A nil hook disables events.
func WithHook(h Hook) Option {
	return func(o *options) {
		o.hook = h
		o.hookSet = true
	}
}

// WithSettings sets the root's initial wait policy. Zero fields keep the
// registry defaults.
func WithSettings(s policy.Settings) Option {
	return func(o *options) {
		o.settings = s
		o.hasCfg = true
	}
}

// WithTimeout sets the root's initial timeout. Zero keeps the default;
// use Handle.ExistsNow for a single attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.settings.Timeout = d
		o.hasCfg = true
	}
}

// WithPollInterval sets the root's initial poll interval. Values under
// 10ms are clamped to 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.settings.PollInterval = d
		o.hasCfg = true
	}
}

// WithConfig takes the wait defaults from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		o.settings = cfg.PolicySettings()
		o.hasCfg = true
	}
}

// HandleOption configures a child handle created by FromParent.
type HandleOption func(*Handle)

// WithSeed primes the handle's cache with an already found node. Indexed
// handles keep the seed for Cached but still resolve through their set.
func WithSeed(n ui.Node) HandleOption {
	return func(h *Handle) {
		h.cached = n
	}
}

// AtIndex makes the handle select the i-th node (0-indexed) of the match
// set, re-evaluated on every resolution attempt.
func AtIndex(i int) HandleOption {
	return func(h *Handle) {
		h.index = i
		h.indexed = true
	}
}
