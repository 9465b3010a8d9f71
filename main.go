package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/collab-editor-demo/modules/activity"
	"github.com/example/collab-editor-demo/modules/api"
	"github.com/example/collab-editor-demo/modules/broadcast"
	"github.com/example/collab-editor-demo/modules/collab"
)

const shutdownTimeout = 30 * time.Second

func main() {
	port := getEnv("PORT", "5001")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	// Create modules. The registry is owned by the collab module and handed to
	// the broadcast hub; the hub is handed back to the collab service. Both
	// injections happen here because neither is exposed via ServiceContainer.
	collabModule := collab.NewModule(logger)
	broadcastModule := broadcast.NewModule(collabModule.Registry(), logger)
	collabModule.SetSender(broadcastModule.Hub())

	activityModule := activity.NewModule(logger)

	apiModule, err := api.NewModule(port, collabModule.Service(), broadcastModule.Hub(), logger)
	if err != nil {
		log.Fatalf("Failed to create API module: %v", err)
	}

	// Order: independent modules first, then modules with dependencies.
	app.Register(collabModule)    // registry + protocol service, event emitter
	app.Register(broadcastModule) // WebSocket fan-out hub
	app.Register(activityModule)  // event consumer + feed service
	app.Register(apiModule)       // Fiber HTTP/WebSocket transport

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Collab editor relay started", "port", port)
	logger.Info("WebSocket endpoint", "url", "ws://localhost:"+port+"/ws")
	logger.Info("REST endpoints",
		"health", "GET /health",
		"mintRoom", "POST /api/v1/rooms",
		"room", "GET /api/v1/rooms/:id",
		"activity", "GET /api/v1/rooms/:id/activity")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
