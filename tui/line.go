package tui

import (
	"fmt"
	"strconv"

	"github.com/cboone/lazynode/ui"
)

// Line is a node for one screen row. It stays live while the row still
// shows the text it had when found; any change to that row makes it stale.
type Line struct {
	term *Terminal
	row  int
	text string
}

var _ ui.Node = (*Line)(nil)

// Row returns the line's 0-indexed row.
func (l *Line) Row() int { return l.row }

func (l *Line) String() string {
	return fmt.Sprintf("line %d %q", l.row, l.text)
}

// live recaptures the screen and checks the row is unchanged.
func (l *Line) live() (*Screen, error) {
	scr, err := l.term.capture()
	if err != nil {
		return nil, err
	}
	if scr.Line(l.row) != l.text {
		return nil, fmt.Errorf("tui: %s: %w", l, ui.ErrStale)
	}
	return scr, nil
}

// FindAll returns the line itself if it matches loc.
func (l *Line) FindAll(loc ui.Locator) ([]ui.Node, error) {
	m, err := compile(loc)
	if err != nil {
		return nil, err
	}
	if _, err := l.live(); err != nil {
		return nil, err
	}
	if !m(l.text) {
		return []ui.Node{}, nil
	}
	return []ui.Node{l}, nil
}

// IsDisplayed reports true while the row still shows the line's text.
func (l *Line) IsDisplayed() (bool, error) {
	if _, err := l.live(); err != nil {
		return false, err
	}
	return true, nil
}

// IsEnabled reports whether the program is still running.
func (l *Line) IsEnabled() (bool, error) {
	if _, err := l.live(); err != nil {
		return false, err
	}
	st, err := l.term.pane.state()
	if err != nil {
		return false, err
	}
	return !st.dead, nil
}

// Text returns the row's text, trimmed on the right.
func (l *Line) Text() (string, error) {
	if _, err := l.live(); err != nil {
		return "", err
	}
	return l.text, nil
}

// Attribute supports "row" and "text".
func (l *Line) Attribute(name string) (string, bool, error) {
	if _, err := l.live(); err != nil {
		return "", false, err
	}
	switch name {
	case "row":
		return strconv.Itoa(l.row), true, nil
	case "text":
		return l.text, true, nil
	}
	return "", false, nil
}

// Property supports "row", "text" and "cursor", which reports whether the
// cursor is on the line.
func (l *Line) Property(name string) (any, error) {
	scr, err := l.live()
	if err != nil {
		return nil, err
	}
	switch name {
	case "row":
		return l.row, nil
	case "text":
		return l.text, nil
	case "cursor":
		row, _ := scr.Cursor()
		return row == l.row, nil
	}
	return nil, nil
}

// Click is not supported on terminals.
func (l *Line) Click() error {
	return fmt.Errorf("tui: click: %w", ui.ErrUnsupported)
}

// SendKeys types text into the terminal. Terminals have one input, so the
// line only has to be live.
func (l *Line) SendKeys(text string) error {
	if _, err := l.live(); err != nil {
		return err
	}
	return l.term.pane.typeLiteral(text)
}

// Clear is not supported on terminals.
func (l *Line) Clear() error {
	return fmt.Errorf("tui: clear: %w", ui.ErrUnsupported)
}

// Submit presses Enter.
func (l *Line) Submit() error {
	if _, err := l.live(); err != nil {
		return err
	}
	return l.term.pane.sendKeys(string(Enter))
}

// SelectOption is not supported on terminals.
func (l *Line) SelectOption(ui.Option) error {
	return fmt.Errorf("tui: select: %w", ui.ErrUnsupported)
}
