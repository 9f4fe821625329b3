package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kpidash/internal"
	"kpidash/internal/config"
	"kpidash/internal/container"
	"kpidash/ui"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(appConfig.LogLevel))
	logger := internal.DefaultLogger.Named("Main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := container.New(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Shutdown(context.Background())

	if err := app.Start(ctx); err != nil {
		logger.Warn("file watching disabled: %v", err)
	}

	// Warm the cache so the first page does not pay for the workbook read
	if res, err := app.Service.Load(ctx); err != nil {
		logger.Warn("initial load failed, the dashboard will show the error: %v", err)
	} else {
		logger.Info("loaded %s: %d rows, %d columns", res.Summary.SourceFile, res.Summary.TotalRows, res.Summary.TotalColumns)
	}

	server, err := ui.NewServer(app.Service, ui.Options{
		GinMode:   appConfig.Server.GinMode,
		NotesFile: appConfig.Data.NotesFile,
		Telemetry: app.Telemetry,
		Events:    app.Events,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if appConfig.Profiling.Enabled {
		go func() {
			logger.Info("pprof listening on :%s", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				logger.Error("pprof server failed: %v", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("dashboard listening on :%s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	// close the event streams first so Shutdown does not wait on them
	app.Events.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}
