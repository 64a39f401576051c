// Local development server. Serves the same routes as the gateway Lambda
// but runs continuations on an in-process goroutine runner instead of
// EventBridge.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"muse-backend/infrastructure/config"
	"muse-backend/infrastructure/di"
	"muse-backend/infrastructure/messaging/inprocess"
	"muse-backend/interfaces/http/rest"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger
	defer logger.Sync()

	// Continuations run in process locally; swap the queue before serving.
	runner := inprocess.NewRunner(container.Dispatcher, logger, 2*time.Minute)
	container.Dispatcher.SetQueue(runner)

	router := rest.NewRouter(
		container.Dispatcher,
		container.StateSigner,
		container.Authenticator,
		container.Store,
		cfg.PublicKey,
		logger,
		cfg.IsDevelopment(),
	)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	runner.Wait()
}
