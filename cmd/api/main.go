package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"seamless/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (tracking store, processor clients, checkout).
// 3) Serve HTTP until SIGINT/SIGTERM.
func main() {
	log.Println("seamless api starting")
	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Printf("seamless api stopped with error: %v", err)
	}
}
