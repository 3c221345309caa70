/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the booking engine server. Handles
  configuration, store selection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Initialize the store (SQLite by default, MongoDB when configured)
  3. Create API handler with dependencies
  4. Configure HTTP router
  5. Start server with graceful shutdown

CONFIGURATION:
  Flags override environment variables.
  -port / PORT         HTTP server port (default: 8080)
  -db / DB_PATH        SQLite database path (default: booking.db)
                       Use ":memory:" for in-memory database
  -mongo / MONGO_URI   MongoDB connection URI; when set, MongoDB is
                       used instead of SQLite
  MONGO_DB             MongoDB database name (default: booking)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the store
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/booking.db"

  # Run against MongoDB
  ./server -mongo="mongodb://localhost:27017"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite, store/mongo: Store implementations
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/courtside/booking-engine/api"
	"github.com/courtside/booking-engine/store/mongo"
	"github.com/courtside/booking-engine/store/sqlite"
)

func main() {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "booking.db"), "SQLite database path")
	mongoURI := flag.String("mongo", envStr("MONGO_URI", ""), "MongoDB URI (overrides SQLite)")
	flag.Parse()

	store, closeStore, err := openStore(*dbPath, *mongoURI)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer closeStore()

	handler := api.NewHandler(store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// openStore picks MongoDB when a URI is configured, SQLite otherwise.
func openStore(dbPath, mongoURI string) (api.Store, func(), error) {
	if mongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		st, err := mongo.New(ctx, mongoURI, envStr("MONGO_DB", "booking"))
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using MongoDB store (%s)", mongoURI)
		return st, func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := st.Close(closeCtx); err != nil {
				log.Printf("Warning: failed to close MongoDB store: %v", err)
			}
		}, nil
	}

	st, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Using SQLite store (%s)", dbPath)
	return st, func() {
		if err := st.Close(); err != nil {
			log.Printf("Warning: failed to close SQLite store: %v", err)
		}
	}, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
