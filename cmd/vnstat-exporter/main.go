package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultDeps()).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "vnstat-exporter:", err)
		os.Exit(1)
	}
}
