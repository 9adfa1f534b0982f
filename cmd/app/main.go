package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"CollabChatAPI/internal/adapter"
	"CollabChatAPI/internal/bootstrap"
	"CollabChatAPI/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.LoadAppConfig()

	pool, err := config.NewPgxPool(cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	s3Client := config.NewS3Client(cfg)

	var redisAdapter *adapter.RedisAdapter
	if cfg.RedisEnabled() {
		redisAdapter, err = adapter.NewRedisAdapter(cfg)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisAdapter.Client().Close()
	}

	validate := config.NewValidator()

	router := bootstrap.Init(cfg, pool, validate, s3Client, redisAdapter)

	addr := fmt.Sprintf(":%s", cfg.AppPort)
	slog.Info("Starting CollabChatAPI", "port", cfg.AppPort)

	if err := http.ListenAndServe(addr, router); err != nil {
		slog.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
