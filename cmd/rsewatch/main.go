package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"rsewatch/internal/config"
	"rsewatch/internal/scheduler"
	"rsewatch/internal/scraper"
	"rsewatch/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] rsewatch starting...")

	// Optional .env for local development.
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
		log.Fatalf("[FATAL] create data dir: %v", err)
	}
	st, err := store.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	defer st.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := scraper.NewRunner(cfg, st)
	sched := scheduler.New(ctx, runner.Run)
	if err := sched.Register(cfg.Interval()); err != nil {
		log.Fatalf("[FATAL] register schedule: %v", err)
	}
	// Optional: run immediately on start. Done before the schedule starts
	// so the startup run cannot overlap the first tick.
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing scrape now")
		if err := sched.RunNow(); err != nil {
			log.Printf("[ERROR] scrape run: %v", err)
		}
	}

	sched.Start()
	defer sched.Stop()
	log.Printf("[INFO] scraping %s every %s", cfg.Source.URL, cfg.Interval())

	log.Println("[INFO] rsewatch is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] rsewatch stopped")
}
