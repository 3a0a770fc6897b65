// Command toolinvoke loads a tool manifest and lists, invokes or serves its
// tools.
//
//	toolinvoke list -m tools.yaml
//	toolinvoke invoke greet --input '{"name":"Alice"}'
//	toolinvoke serve --addr :8080 --redis redis://localhost:6379/0
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(builtinFuncs()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
