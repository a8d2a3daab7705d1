package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func cmdContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()
	return ctx
}

// newLogger writes diagnostics to stderr; records go to the sink.
func newLogger() *log.Logger {
	return log.New(os.Stderr, "", 0)
}
