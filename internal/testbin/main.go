// Command testbin is a terminal fixture for the tui backend tests. It reads
// stdin line by line and renders output, some of it after a delay.
//
// Commands:
//   - "quit": exit with status 0
//   - "fail": exit with status 1
//   - "show NAME": print "item: NAME"
//   - "later MS TEXT": print "late: TEXT" after MS milliseconds
//   - "clear": clear the screen
//   - "lines N": print N numbered lines
//   - "size": print the terminal size
//   - anything else: print "echo: <line>"
//
// A "ready>" prompt follows every command.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

type screen struct {
	mu         sync.Mutex
	cols, rows int
}

func (s *screen) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf(format, args...)
}

func (s *screen) resize() {
	c, r, err := termSize(os.Stdout.Fd())
	if err != nil {
		return
	}
	s.mu.Lock()
	s.cols, s.rows = c, r
	s.mu.Unlock()
}

func main() {
	scr := &screen{}
	scr.resize()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	go func() {
		for range winch {
			scr.resize()
		}
	}()

	scr.printf("ready>")
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		run(scr, in.Text())
		scr.printf("ready>")
	}
}

func run(scr *screen, input string) {
	cmd, arg, _ := strings.Cut(input, " ")
	switch cmd {
	case "quit":
		os.Exit(0)
	case "fail":
		os.Exit(1)
	case "show":
		scr.printf("item: %s\n", arg)
	case "later":
		ms, text, _ := strings.Cut(arg, " ")
		delay, err := strconv.Atoi(ms)
		if err != nil {
			scr.printf("error: invalid delay %q\n", ms)
			return
		}
		time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
			scr.printf("\r\nlate: %s\r\n", text)
		})
	case "clear":
		scr.printf("\033[2J\033[H")
	case "lines":
		n, err := strconv.Atoi(arg)
		if err != nil {
			scr.printf("error: invalid count %q\n", arg)
			return
		}
		for i := 1; i <= n; i++ {
			scr.printf("line %d\n", i)
		}
	case "size":
		scr.mu.Lock()
		c, r := scr.cols, scr.rows
		scr.mu.Unlock()
		scr.printf("size: %dx%d\n", c, r)
	default:
		scr.printf("echo: %s\n", input)
	}
}

type winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

func termSize(fd uintptr) (cols, rows int, err error) {
	var ws winsize
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd,
		uintptr(syscall.TIOCGWINSZ), uintptr(unsafe.Pointer(&ws)))
	if errno != 0 {
		return 0, 0, errno
	}
	return int(ws.Col), int(ws.Row), nil
}
