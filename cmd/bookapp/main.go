package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bookapp/internal/app"
	"bookapp/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		log.Fatal(err)
	}

	err = cli.New(application, os.Stdin, os.Stdout).Execute(ctx, os.Args[1:])
	application.Shutdown(context.Background())
	if err != nil {
		os.Exit(1)
	}
}
