package lazynode

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cboone/lazynode/policy"
	"github.com/cboone/lazynode/poll"
	"github.com/cboone/lazynode/ui"
	"github.com/cboone/lazynode/wait"
)

// Session binds a root search context to the policy registry that holds
// its wait policy. Handles created from a session read the root's current
// policy each time they resolve.
type Session struct {
	id       string
	root     ui.SearchContext
	registry *policy.Registry
	logger   *zap.Logger
	hook     Hook
}

// NewSession returns a session for root. Without WithRegistry the session
// gets a private registry whose defaults are the configured settings.
func NewSession(root ui.SearchContext, userOpts ...Option) *Session {
	var o options
	for _, opt := range userOpts {
		opt(&o)
	}

	s := &Session{
		id:       uuid.NewString(),
		root:     root,
		registry: o.registry,
		logger:   o.logger,
		hook:     o.hook,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	base := s.logger
	s.logger = s.logger.With(zap.String("session", s.id))

	if s.registry == nil {
		s.registry = policy.NewRegistry(o.settings)
	} else if o.hasCfg {
		merged := s.registry.Defaults()
		if o.settings.Timeout != 0 {
			merged.Timeout = o.settings.Timeout
		}
		if o.settings.PollInterval != 0 {
			merged.PollInterval = o.settings.PollInterval
		}
		s.registry.Set(root, merged)
	}
	if !o.hookSet {
		// Events carry the session ID themselves.
		s.hook = LogHook(base)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Root returns the root search context.
func (s *Session) Root() ui.SearchContext { return s.root }

// Registry returns the registry holding the root's policy.
func (s *Session) Registry() *policy.Registry { return s.registry }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.logger }

// Policy returns the root's policy, with its diagnostic message cleared.
func (s *Session) Policy() *policy.Policy { return s.registry.Get(s.root) }

// Settings returns a snapshot of the root's current policy.
func (s *Session) Settings() policy.Settings { return s.Policy().Values() }

// SetSettings replaces the root's policy. Every handle of the root sees the
// change on its next resolution.
func (s *Session) SetSettings(v policy.Settings) { s.registry.Set(s.root, v) }

// Close unregisters the root's policy.
func (s *Session) Close() { s.registry.Remove(s.root) }

// Find returns a top-level handle. It is FromRoot(s, loc, name).
func (s *Session) Find(loc ui.Locator, name string) *Handle {
	return FromRoot(s, loc, name)
}

func (s *Session) emit(ev Event) {
	if s.hook == nil {
		return
	}
	ev.Session = s.id
	s.hook(ev)
}

// WaitForAny polls handles in order, one attempt each per cycle, and
// returns the first one that reaches state. On timeout the error
// aggregates every failure seen across cycles and handles.
func (s *Session) WaitForAny(label string, state wait.State, handles ...*Handle) (*Handle, error) {
	cfg := s.Settings()
	producers := make([]func() (*Handle, error), len(handles))
	for i, h := range handles {
		producers[i] = func() (*Handle, error) {
			n, err := h.attemptOnce(stateCheck(state))
			if err != nil {
				return nil, err
			}
			h.store(n)
			return h, nil
		}
	}
	h, err := poll.ForAny(label, cfg.PollInterval, cfg.Timeout, producers...)
	if err != nil {
		return nil, fmt.Errorf("lazynode: wait-for-any: %w", err)
	}
	return h, nil
}

// WaitForAll resolves every handle to state concurrently and returns the
// first failure, after all resolutions have finished.
func (s *Session) WaitForAll(state wait.State, handles ...*Handle) error {
	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			_, err := h.resolve("wait-for-all", stateCheck(state))
			return err
		})
	}
	return g.Wait()
}

// WaitForPageSettled waits until two consecutive reads of the root's full
// content are identical and non-empty, using the root's timeout. The root
// must implement ui.Documenter. See wait.ForPageSettled for the limits of
// this heuristic.
func (s *Session) WaitForPageSettled() (string, error) {
	doc, ok := s.root.(ui.Documenter)
	if !ok {
		doc, ok = ui.Canonical(s.root).(ui.Documenter)
	}
	if !ok {
		return "", fmt.Errorf("lazynode: wait-for-page-settled: %T: %w", s.root, ui.ErrUnsupported)
	}
	src, err := wait.ForPageSettled(doc, s.Settings().Timeout)
	if err != nil {
		return "", fmt.Errorf("lazynode: wait-for-page-settled: %w", err)
	}
	return src, nil
}
