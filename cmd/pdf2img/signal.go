package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mamome2021/pdf2img"
)

// installSignalHandler sets the shared cancellation flag on SIGINT/SIGTERM:
// in-flight pages run to completion, everything not yet started is skipped.
func installSignalHandler(cancel *pdf2img.CancelFlag) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel.Set()
	}()
}
