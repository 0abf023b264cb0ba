// Package tui runs terminal programs under tmux and exposes their screens to
// lazynode handles.
//
// A [Terminal] is a root search context. Its nodes are screen rows ([Line]),
// found with the text (substring) and regexp locator strategies:
//
//	func TestPrompt(t *testing.T) {
//		term := tui.Open(t, "./my-app", tui.WithSize(120, 40))
//		prompt := term.Find(ui.ByText("Name:"), "name prompt")
//		if err := prompt.SendKeys("Alice"); err != nil {
//			t.Fatal(err)
//		}
//		term.Press(tui.Enter)
//		if _, err := term.Find(ui.ByRegexp(`^Saved \d+`), "saved").ResolveVisible(); err != nil {
//			t.Fatal(err)
//		}
//	}
//
// A line stays live while its row shows the same text. When the row changes
// the line is stale and handles look it up again, so a handle follows text
// that scrolls.
//
// Each terminal gets its own tmux server on a unique socket, configured with
// remain-on-exit and no status bar, and killed in t.Cleanup. tmux 3.0 or
// newer is required. It is found through [WithTmuxPath], then the
// LAZYNODE_TMUX variable, then $PATH; when it was not configured explicitly
// and is missing or too old, the test is skipped.
//
// [Terminal.MatchSnapshot] compares the settled screen with a golden file
// under testdata. Set LAZYNODE_UPDATE=1 to write golden files.
package tui
