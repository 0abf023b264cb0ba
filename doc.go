// Package lazynode makes references to asynchronously rendering UI nodes
// reliable in tests.
//
// A [Handle] is a lazy, cached reference to a node under a root search
// context (a browser page, a terminal, or anything implementing
// [ui.SearchContext]). Handles are built without I/O and resolved on first
// use by polling the root until the node reaches the state the call needs.
//
// # Quick Start
//
//	func TestLogin(t *testing.T) {
//		s := lazynode.NewSession(page, lazynode.WithTimeout(10*time.Second))
//		defer s.Close()
//
//		form := s.Find(ui.ByID("login"), "login form")
//		user := lazynode.FromParent(form, ui.ByName("user"), "username")
//		if err := user.SendKeys("alice"); err != nil {
//			t.Fatal(err)
//		}
//		if err := s.Find(ui.ByCSS("button.submit"), "submit").Click(); err != nil {
//			t.Fatal(err)
//		}
//	}
//
// # Resolution
//
// Every resolution first checks the cached node, if any. A live node that
// satisfies the requested state is returned without a search; a failed
// liveness check clears the cache. Indexed handles skip this step. Otherwise the parent is resolved (with its own
// wait), and the handle's locator is polled under the parent's live node
// using the root's current policy.
//
// Wait behavior:
//
//   - Defaults: 5s timeout, 50ms poll interval
//   - Per-session: [WithTimeout], [WithPollInterval], [WithSettings], [WithConfig]
//   - At runtime: [Session.SetSettings], seen by every handle of the root
//   - Poll intervals under 10ms are clamped to 10ms
//   - At least one attempt is made, even with a zero timeout
//
// Indexed handles ([AtIndex], [Handle.Nth], [Handle.All]) re-query the whole
// match set on every attempt and select by position in the current set.
//
// # Diagnostics
//
// A timed-out resolution returns a [*NotFoundError] carrying the handle
// chain, the friendly name, the required state and the last reason the node
// was not ready. A failed action returns an [*ActionError]. Every public call
// is reported to the session [Hook]; the default hook logs through zap.
//
// # Concurrency
//
// Handles and sessions are safe for concurrent use. [Handle.ExistsNow] and
// [Handle.IsDisplayed] zero the shared root timeout while they run, so
// goroutines sharing a root must synchronize around them.
package lazynode
