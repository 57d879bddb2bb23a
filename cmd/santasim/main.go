// Command santasim runs the yearly gift allocation simulation over a JSON
// scenario and writes one snapshot per round.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "santasim:", err)
		stop()
		exitFunc(1)
	}
}
