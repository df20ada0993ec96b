package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"library-backend/internal/cli"
)

// @title                       Library Books API
// @version                     1.0
// @description                 Book inventory, borrow/return and per-user borrow counters.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// Ctrl+C / SIGTERM で graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		stop()
		os.Exit(1)
	}
}
