package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/cspsgo/internal/ai"
	"github.com/xelth-com/cspsgo/internal/buildinfo"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/handlers"
	"github.com/xelth-com/cspsgo/internal/services/importer"
	"github.com/xelth-com/cspsgo/internal/services/mailer"
	"github.com/xelth-com/cspsgo/internal/services/missions"
	"github.com/xelth-com/cspsgo/internal/services/printer"
	"github.com/xelth-com/cspsgo/internal/services/reports"
	"github.com/xelth-com/cspsgo/internal/services/users"
	"github.com/xelth-com/cspsgo/internal/services/visits"
	"github.com/xelth-com/cspsgo/internal/storage"
	"github.com/xelth-com/cspsgo/internal/websocket"
)

func main() {
	log := config.GetLogger()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	config.ConfigureLogger(cfg.Log)

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Info("🚀 Synchronizing database schema...")
	if err := database.Migrate(db.DB); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("✅ Schema synchronized successfully")

	// 4. External collaborators
	ctx := context.Background()
	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	var analyzer visits.PhotoAnalyzer
	var gemini *ai.GeminiClient
	if cfg.AI.GeminiAPIKey != "" {
		gemini, err = ai.NewGeminiClient(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model)
		if err != nil {
			log.Warnf("⚠️ AI: photo analysis disabled: %v", err)
		} else {
			analyzer = gemini
			log.WithField("model", cfg.AI.Model).Info("✅ AI: photo analysis enabled")
		}
	} else {
		log.Info("AI: GEMINI_API_KEY not set, photo analysis disabled")
	}

	mail := mailer.New(cfg.Mail)

	hub := websocket.NewHub()
	go hub.Run()

	// 5. Services and HTTP router
	svc := handlers.Services{
		Users:    users.NewService(db, cfg),
		Missions: missions.NewService(db, hub, cfg),
		Importer: importer.NewService(db, cfg),
		Visits:   visits.NewService(db, files, analyzer),
		Reports:  reports.NewService(db, files, printer.NewRenderer(), mail, cfg),
		Hub:      hub,
	}
	if local, ok := files.(*storage.LocalStore); ok {
		svc.FilesDir = local.Root()
	}
	router := handlers.NewRouter(db, svc)

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.WithField("version", buildinfo.Version).Infof("🚀 Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Warnf("⚠️  Received signal: %v. Shutting down gracefully...", sig)

	// Create context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}

	if gemini != nil {
		gemini.Close()
	}
	if closer, ok := files.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Errorf("Storage close error: %v", err)
		}
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Info("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Errorf("Database close error: %v", err)
	}

	log.Info("✅ Shutdown complete")
}
