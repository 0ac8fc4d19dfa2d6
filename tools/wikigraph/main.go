// Command wikigraph compiles a wikipedia dump into a binary link graph
// and answers questions about the result.
//
//	wikigraph plan --dump enwiki.xml.bz2 --store sqlite --dsn enwiki.db
//	wikigraph compile --graph enwiki.bin
//	wikigraph path "Sea sponge" "Philosophy"
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().rootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
