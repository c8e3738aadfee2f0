// Wifiecho joins a wireless network and runs a TCP echo service on it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wifiecho/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wifiecho: %v\n", err)
		os.Exit(1)
	}
}
