package tui

import "strconv"

// Key is a tmux key name for Press.
type Key string

const (
	Enter     Key = "Enter"
	Escape    Key = "Escape"
	Tab       Key = "Tab"
	Backspace Key = "BSpace"
	Delete    Key = "DC"
	Space     Key = "Space"
	Up        Key = "Up"
	Down      Key = "Down"
	Left      Key = "Left"
	Right     Key = "Right"
	Home      Key = "Home"
	End       Key = "End"
	PageUp    Key = "PageUp"
	PageDown  Key = "PageDown"
)

// F returns function key n, from 1 to 12.
func F(n int) Key {
	return Key("F" + strconv.Itoa(n))
}

// Ctrl returns Ctrl+c.
func Ctrl(c byte) Key { return Key("C-" + string(c)) }

// Alt returns Alt+c.
func Alt(c byte) Key { return Key("M-" + string(c)) }
