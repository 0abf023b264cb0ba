// Command lazywait loads a page in headless Chrome and waits on it the way
// a test would, through lazy handles. It is useful for checking locators and
// wait settings against a live site before writing the test.
//
//	lazywait wait https://example.com h1
//	lazywait --timeout 10s absent https://example.com "#spinner"
//	lazywait -s link-text click https://example.com "More information..."
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp(openBrowser)
	err := a.command().ExecuteContext(ctx)
	a.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
