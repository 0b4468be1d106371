package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"congress-alpha/internal/broker"
	"congress-alpha/internal/config"
	"congress-alpha/internal/engine"
	"congress-alpha/internal/logger"
	"congress-alpha/internal/marketdata"
	"congress-alpha/internal/scheduler"
	"congress-alpha/internal/sector"
	"congress-alpha/internal/storage"
	"congress-alpha/internal/telegram"
	"congress-alpha/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "data/congress-alpha.db", "path to SQLite database")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Init logger
	log := logger.New(cfg.Logging.Level)

	mode := "DEMO"
	if cfg.IsLive() {
		mode = "LIVE"
	}
	log.Info("starting congress-alpha", "mode", mode)

	// Init database
	db, err := storage.NewDatabase(*dbPath)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	repo := storage.NewRepository(db)

	// Context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init services
	bc := broker.NewClient(cfg, log)
	md := marketdata.NewClient(log)
	sectors := sector.NewMapper(cfg.Sector)
	notifier := telegram.NewNotifier(cfg, log)
	eng := engine.NewEngine(repo, bc, md, sectors, notifier, cfg, log)

	// One cycle at a time: the scheduler and the API trigger share this lock.
	lock := &engine.CycleLock{}

	sched := scheduler.NewScheduler(eng, lock, repo, cfg, log)
	webServer := web.NewServer(eng, lock, bc, repo, cfg, log)

	// Start scheduler in goroutine
	go sched.Run(ctx)

	// Start web server in goroutine
	go func() {
		if err := webServer.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()

	notifier.NotifyStatus(fmt.Sprintf("🤖 Congress Alpha started (%s)", mode))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", "signal", sig.String())

	// Graceful shutdown
	cancel() // stop scheduler

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error("web server shutdown error", "error", err)
	}

	notifier.NotifyStatus("🛑 Congress Alpha stopped")
	log.Info("congress-alpha stopped")
}
