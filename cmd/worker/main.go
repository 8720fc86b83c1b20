package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/analytics"
	"rollcall/internal/attendance"
	"rollcall/internal/config"
	"rollcall/internal/queue"
	"rollcall/internal/store"
)

// Worker consumes change events and drops the cached dashboard stats for the
// affected teacher and students so their next read recomputes.
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

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:changes")
	}

	cache := analytics.NewCache(redisClient.Client, cfg.StatsCacheTTL)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		switch msg.Type {
		case attendance.EventSessionCreated, attendance.EventAttendanceUpdated:
		default:
			continue
		}

		var evt attendance.ChangeEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Printf("decode %s event failed: %v", msg.Type, err)
			continue
		}

		affected := append([]string{evt.TeacherID}, evt.UserIDs...)
		cache.Invalidate(ctx, affected...)
		log.Printf("%s: invalidated stats for %d users (session %s)", msg.Type, len(affected), evt.SessionID)
	}

	log.Println("worker stopped")
}
