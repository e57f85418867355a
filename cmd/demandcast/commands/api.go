package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/demandcast/internal/api"
	"github.com/wonny/demandcast/internal/api/handlers"
	"github.com/wonny/demandcast/internal/ensemble"
	"github.com/wonny/demandcast/internal/pipeline"
	"github.com/wonny/demandcast/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `예측 결과 조회용 REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 최신 일별 예측 / run log / 앙상블 가중치 조회 엔드포인트 제공

Endpoints:
  GET  /health                  - Health check
  GET  /api/forecast/daily      - 최신 일별 예측 (?from, ?to)
  GET  /api/forecast/runlog     - 최신 run log
  GET  /api/ensemble/weights    - 앙상블 가중치

Example:
  go run ./cmd/demandcast api
  go run ./cmd/demandcast api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: 설정값)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Demandcast API Server ===")

	cfg, log, db, err := initDeps()
	if err != nil {
		return err
	}
	defer db.Close()

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	cache := redis.NewCache(redisClient)

	forecastHandler := handlers.NewForecastHandler(
		pipeline.NewRepository(db.Pool),
		ensemble.NewRepository(db.Pool),
		cache,
		log,
	)

	router := api.NewRouter(forecastHandler, log)
	server := api.New(cfg, log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Error("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/forecast/daily")
	fmt.Println("  GET  /api/forecast/runlog")
	fmt.Println("  GET  /api/ensemble/weights")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
