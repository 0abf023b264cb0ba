package tui

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/cboone/lazynode/ui"
)

// Screen is an immutable capture of terminal content.
type Screen struct {
	lines     []string
	raw       string
	width     int
	height    int
	cursorRow int
	cursorCol int
}

// newScreen builds a Screen from capture-pane output, normalizing line
// endings and dropping the trailing newline tmux emits.
func newScreen(raw string, width, height int) *Screen {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSuffix(raw, "\n")
	return &Screen{
		lines:     strings.Split(raw, "\n"),
		raw:       raw,
		width:     width,
		height:    height,
		cursorRow: -1,
		cursorCol: -1,
	}
}

// String returns the full screen content.
func (s *Screen) String() string { return s.raw }

// Lines returns a copy of the screen rows.
func (s *Screen) Lines() []string {
	return append([]string(nil), s.lines...)
}

// Line returns row n (0-indexed) with trailing spaces trimmed, or "" if n
// is out of range.
func (s *Screen) Line(n int) string {
	if n < 0 || n >= len(s.lines) {
		return ""
	}
	return strings.TrimRight(s.lines[n], " ")
}

// Contains reports whether the screen contains substr.
func (s *Screen) Contains(substr string) bool {
	return strings.Contains(s.raw, substr)
}

// Size returns the width and height the screen was captured at.
func (s *Screen) Size() (width, height int) { return s.width, s.height }

// Cursor returns the cursor position, or -1, -1 if it was not captured.
func (s *Screen) Cursor() (row, col int) { return s.cursorRow, s.cursorCol }

// Rows returns the indexes of the rows matching loc, top to bottom. Only
// the text (substring) and regexp strategies are supported.
func (s *Screen) Rows(loc ui.Locator) ([]int, error) {
	m, err := compile(loc)
	if err != nil {
		return nil, err
	}
	var rows []int
	for i := range s.lines {
		if m(s.Line(i)) {
			rows = append(rows, i)
		}
	}
	return rows, nil
}

type lineMatcher func(line string) bool

var regexps sync.Map // pattern -> *regexp.Regexp

func compile(loc ui.Locator) (lineMatcher, error) {
	switch loc.Strategy() {
	case ui.Text:
		sub := loc.Value()
		return func(line string) bool { return strings.Contains(line, sub) }, nil
	case ui.Regexp:
		if re, ok := regexps.Load(loc.Value()); ok {
			return re.(*regexp.Regexp).MatchString, nil
		}
		re, err := regexp.Compile(loc.Value())
		if err != nil {
			return nil, fmt.Errorf("tui: %s: %w", loc, err)
		}
		regexps.Store(loc.Value(), re)
		return re.MatchString, nil
	default:
		return nil, fmt.Errorf("tui: locator %s: %w", loc, ui.ErrUnsupported)
	}
}
