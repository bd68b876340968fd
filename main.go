package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lojafone/vitrine/config"
	"github.com/lojafone/vitrine/logger"
	"github.com/lojafone/vitrine/middleware"
	"github.com/lojafone/vitrine/store"
)

const currentVersion = "0.1.0"

var buildstamp = "dev"

func main() {
	configFile := flag.String("config", "vitrine.yaml", "Path to config file")
	initDB := flag.Bool("init-db", false, "Initialize database schema")
	dev := flag.Bool("dev", false, "Enable dev mode logging")
	flag.Parse()

	log := logger.Setup(*dev)
	log.Info().Str("version", currentVersion).Str("build", buildstamp).Msg("vitrine server starting")

	// Load configuration; run with defaults if the default config file is absent.
	var cfg *config.Config
	if _, err := os.Stat(*configFile); os.IsNotExist(err) {
		log.Warn().Str("path", *configFile).Msg("config file not found, using defaults")
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}

	// Initialize database
	db, err := store.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Str("host", cfg.Database.Host).Str("name", cfg.Database.Name).Msg("connected to database")

	if *initDB {
		if err := db.InitSchema(); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
		log.Info().Msg("schema initialized")
	}

	// Initialize hub and engines
	hub := NewHub(log)
	go hub.Run()

	room := NewRoom(cfg.Chat, hub, log)
	hub.SetRoom(room)

	catalog := NewCatalog(db, hub, log)

	// Initialize server
	srv := NewServer(hub, catalog, room, cfg, log)
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	corsMiddleware := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	handler := corsMiddleware(mux)

	httpServer := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Info().Str("listen", cfg.Server.Listen).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	// Shutdown hub (closes WebSocket connections)
	hub.Shutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
		httpServer.Close() // Force close if graceful shutdown fails
	}

	log.Info().Msg("server stopped")
}
