// main.go - Entry point and dependency injection
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/sstent/tracksync-go/internal/config"
	"github.com/sstent/tracksync-go/internal/database"
	"github.com/sstent/tracksync-go/internal/ingest"
	"github.com/sstent/tracksync-go/internal/parser"
	"github.com/sstent/tracksync-go/internal/web"
)

type App struct {
	cfg      config.Config
	db       *database.SQLiteDB
	cron     *cron.Cron
	server   *http.Server
	importer *ingest.Service
	shutdown chan os.Signal
}

func main() {
	app := &App{
		cfg:      config.Load(),
		shutdown: make(chan os.Signal, 1),
	}

	// Initialize components
	if err := app.init(); err != nil {
		log.Fatal("Failed to initialize app: ", err)
	}

	// Start services
	if err := app.start(); err != nil {
		log.Fatal("Failed to start app: ", err)
	}

	// Wait for shutdown signal
	signal.Notify(app.shutdown, os.Interrupt, syscall.SIGTERM)
	<-app.shutdown

	// Graceful shutdown
	app.stop()
}

func (app *App) init() error {
	var err error

	for _, dir := range []string{app.cfg.DataDir, app.cfg.InboxDir, filepath.Dir(app.cfg.DBPath)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// Initialize database
	app.db, err = database.NewSQLiteDB(app.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", app.cfg.DBPath, err)
	}

	// Initialize import service
	opts := []ingest.Option{
		ingest.WithParserOptions(parser.WithIBIPipeline(app.cfg.IBIPipeline())),
	}
	if app.cfg.ExportDir != "" {
		opts = append(opts, ingest.WithExportDir(app.cfg.ExportDir))
	}
	app.importer = ingest.NewService(app.db, app.cfg.InboxDir, opts...)

	// Setup cron scheduler
	app.cron = cron.New()

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	webHandler := web.NewWebHandler(app.db, app.importer)

	app.server = &http.Server{
		Addr:    app.cfg.HTTPAddress,
		Handler: webHandler.Router(),
	}

	return nil
}

func (app *App) start() error {
	// Start cron scheduler
	if _, err := app.cron.AddFunc(app.cfg.ImportSchedule, func() {
		log.Println("Starting scheduled import...")
		app.runImport()
	}); err != nil {
		return fmt.Errorf("invalid import schedule %q: %w", app.cfg.ImportSchedule, err)
	}
	app.cron.Start()

	if app.cfg.ImportOnStart {
		go app.runImport()
	}

	// Start web server
	go func() {
		log.Printf("Server starting on %s", app.cfg.HTTPAddress)
		if err := app.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
		}
	}()

	return nil
}

func (app *App) runImport() {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.RunTimeout)
	defer cancel()

	if _, err := app.importer.Run(ctx); err != nil {
		log.Printf("Import failed: %v", err)
	}
}

func (app *App) stop() {
	log.Println("Shutting down...")

	// Stop cron and wait for a running import
	<-app.cron.Stop().Done()

	// Stop web server
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Close database
	if app.db != nil {
		app.db.Close()
	}

	log.Println("Shutdown complete")
}
