/*
Package main is the entry point for the WA Dash media server.

It is responsible for loading configuration, initializing the global logging system,
connecting the SigV4 object storage client, setting up the HTTP server, and gracefully
handling operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth
server shutdown.

Running "wadash token -id <operator> [-role operator|viewer] [-ttl 24h]" prints a
signed operator token instead of starting the server.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wadash/internal/app/storage"
	"wadash/internal/configs"
	"wadash/internal/handler"
	"wadash/internal/pkg/auth/jwt"
	"wadash/internal/pkg/logx"
	"wadash/internal/pkg/metrics"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "token: %v\n", err)
			os.Exit(2)
		}
		return
	}

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("s3_endpoint", cfg.S3Endpoint).
		Str("s3_bucket", cfg.S3BucketName).
		Str("s3_region", cfg.S3Region).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3Region:          cfg.S3Region,
		Timeout:           cfg.S3Timeout,
	}, storage.WithObserver(m))
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	go func() {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.S3Timeout)
		defer cancel()
		if storageService.TestConnection(pingCtx) {
			logx.Info("Object storage reachable", "bucket", cfg.S3BucketName)
		}
	}()

	// Setup HTTP server and routes
	router := handler.Router(ctx, &handler.AppDeps{
		Config:         cfg,
		StorageService: storageService,
		Metrics:        m,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("WA Dash media server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	logx.Info("Server gracefully stopped.")
}

func issueToken(args []string) error {
	cfg, err := configs.LoadTokenConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	id := fs.String("id", "", "operator id recorded in audit logs")
	role := fs.String("role", jwt.RoleOperator, "operator or viewer")
	ttl := fs.Duration("ttl", jwt.OperatorTokenExpiration, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := jwt.GenerateToken(&jwt.Payload{ID: *id, Role: *role}, cfg.JWTSecret, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
