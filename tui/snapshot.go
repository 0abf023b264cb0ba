package tui

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// UpdateEnv names the environment variable that makes MatchSnapshot write
// golden files instead of comparing against them.
const UpdateEnv = "LAZYNODE_UPDATE"

// MatchSnapshot waits for the screen to settle and compares it against the
// golden file testdata/<test>-<hash>/<name>.txt. Set LAZYNODE_UPDATE=1 to
// create or update golden files.
func (term *Terminal) MatchSnapshot(name string) {
	term.t.Helper()
	src, err := term.session.WaitForPageSettled()
	if err != nil {
		term.t.Fatalf("tui: snapshot: %v", err)
	}
	newScreen(src, term.width, term.height).MatchSnapshot(term.t, name)
}

// MatchSnapshot compares a captured screen against its golden file.
func (s *Screen) MatchSnapshot(t testing.TB, name string) {
	t.Helper()

	dir := snapshotDir(t.Name())
	path := filepath.Join(dir, sanitizeName(name)+".txt")
	got := normalizeForSnapshot(s.String())

	if shouldUpdate() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("tui: snapshot: %v", err)
		}
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			t.Fatalf("tui: snapshot: %v", err)
		}
		return
	}

	golden, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("tui: snapshot: golden file %s not found; run with %s=1 to create it\n\nactual screen:\n%s", path, UpdateEnv, got)
	}
	if err != nil {
		t.Fatalf("tui: snapshot: %v", err)
	}
	if diff := cmp.Diff(strings.Split(string(golden), "\n"), strings.Split(got, "\n")); diff != "" {
		t.Fatalf("tui: snapshot: %q differs from %s (-golden +actual); run with %s=1 to update:\n%s", name, path, UpdateEnv, diff)
	}
}

// snapshotDir is testdata/<sanitized test name>-<short hash>. The hash keeps
// names that sanitize alike apart.
func snapshotDir(testName string) string {
	h := sha256.Sum256([]byte(testName))
	return filepath.Join("testdata", sanitizeName(testName)+"-"+hex.EncodeToString(h[:4]))
}

// normalizeForSnapshot trims trailing spaces and trailing blank lines and
// ends the content with exactly one newline.
func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

func shouldUpdate() bool {
	switch os.Getenv(UpdateEnv) {
	case "1", "true", "yes":
		return true
	}
	return false
}
