package main

import (
	"context"
	"log"

	"ai-knowledgebase-be/internal/bootstrap"
	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/server"
	"ai-knowledgebase-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer (no-op unless TRACING_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	// 3. Start Background Worker
	// Note: In a larger deployment the worker runs as its own process
	// (cmd/worker); embedded here it also drains jobs left by a crash.
	go func() {
		log.Println("Background: Starting Queue Worker...")
		if err := container.Worker.Run(context.Background()); err != nil {
			log.Printf("Background Worker Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
