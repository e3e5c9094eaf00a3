package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/drillsched/internal/database"
	"github.com/example/drillsched/internal/scheduler"
	"github.com/example/drillsched/internal/submission"
	"github.com/example/drillsched/pkg/models"
)

// logNotifier stands in for the notification transport, which is a
// collaborator outside this service.
type logNotifier struct{}

func (logNotifier) SendReminders(deviceID string, dueCount int) error {
	log.Printf("device %s has %d tasks due for review", deviceID, dueCount)
	return nil
}

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	db, err := database.Connect(database.Config{
		Driver:  os.Getenv("DB_DRIVER"),
		DSN:     os.Getenv("DATABASE_URL"),
		DataDir: os.Getenv("DATA_DIR"),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewSchedulingRepository(db)
	coordinator := submission.NewCoordinator(repo)

	jobs := scheduler.New(repo, logNotifier{}, schedulerConfigFromEnv())
	jobs.Start()
	defer jobs.Stop()

	// The routing layer proper lives elsewhere; this is the thin adapter
	// between transport and the submission coordinator.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/submissions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var sub models.Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			http.Error(w, "malformed submission", http.StatusBadRequest)
			return
		}
		metrics, err := coordinator.Submit(r.Context(), sub)
		if err != nil {
			if submission.IsRetryable(err) {
				log.Printf("Submission not persisted: %v", err)
				http.Error(w, "try again", http.StatusServiceUnavailable)
			} else {
				http.Error(w, err.Error(), http.StatusBadRequest)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(metrics); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		log.Printf("Scheduler listening on :%s. Press Ctrl+C to stop.", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Scheduler stopped successfully")
}

// schedulerConfigFromEnv reads the background-job settings, falling back to
// defaults on missing or out-of-range values.
func schedulerConfigFromEnv() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	if v := os.Getenv("NOTIFICATION_START_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			cfg.NotificationStartHour = h
		}
	}
	if v := os.Getenv("NOTIFICATION_END_HOUR"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			cfg.NotificationEndHour = h
		}
	}
	if v := os.Getenv("SYNC_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.FlushInterval = d
		}
	}
	return cfg
}
