package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"ai-knowledgebase-be/internal/bootstrap"
	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/tracer"
)

// Standalone queue worker for deployments where commands run out of
// process. Stops cleanly on SIGINT/SIGTERM.
func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Queue Worker started")
	if err := container.Worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Worker stopped with error: %v", err)
	}
	log.Println("Queue Worker stopped")
}
