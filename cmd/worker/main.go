package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"acadboard/internal/config"
	"acadboard/internal/queue"
	"acadboard/internal/store"
	"acadboard/internal/upstream"
)

// Worker consumes warning-dispatch messages and forwards them to the
// academic backend's bulk mailer using the service token.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.ServiceToken == "" {
		log.Println("WARNING: SERVICE_TOKEN not set, warning dispatch will fail as unauthorized")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "acadboard:warnings")
	}

	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != queue.TypeBulkWarning {
			continue
		}

		var raws []json.RawMessage
		if err := json.Unmarshal(msg.Body, &raws); err != nil {
			log.Printf("message %s: bad body: %v", msg.ID, err)
			continue
		}
		if len(raws) == 0 {
			continue
		}

		log.Printf("message %s: dispatching %d warnings", msg.ID, len(raws))
		if err := client.SendBulkWarning(ctx, cfg.ServiceToken, raws); err != nil {
			log.Printf("message %s: bulk warning failed: %v", msg.ID, err)
			continue
		}
		log.Printf("message %s: dispatched", msg.ID)

		time.Sleep(10 * time.Millisecond)
	}

	log.Println("worker stopped")
}
