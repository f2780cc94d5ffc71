package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hearthware/pantree/internal/database"
	"github.com/hearthware/pantree/internal/email"
	"github.com/hearthware/pantree/internal/localprefs"
	"github.com/hearthware/pantree/internal/logging"
	"github.com/hearthware/pantree/internal/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	port := envOr("PANTREE_PORT", "8080")
	dbPath := envOr("PANTREE_DB_PATH", "pantree.db")
	prefsPath := envOr("PANTREE_PREFS_PATH", "pantree-prefs.db")

	logger := logging.Setup(os.Getenv("PANTREE_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	prefs, err := localprefs.Open(prefsPath)
	if err != nil {
		log.Fatalf("failed to open preferences store: %v", err)
	}
	defer prefs.Close()

	mailer := email.NewClient(
		os.Getenv("PANTREE_POSTMARK_TOKEN"),
		os.Getenv("PANTREE_EMAIL_FROM"),
		envOr("PANTREE_BASE_URL", "http://localhost:"+port),
	)

	srv := server.New(db, prefs, mailer, logger)

	// Rate limiter windows expire on their own; this just reclaims memory.
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Pantree running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	srv.Sessions().CloseAll()
}
