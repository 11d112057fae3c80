package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"attendvault/internal/archive"
	"attendvault/internal/cardvault"
	"attendvault/internal/cloudinary"
	"attendvault/internal/config"
	"attendvault/internal/logger"
	"attendvault/internal/queue"
	"attendvault/internal/store"
)

// Worker drains the redis archive queue and uploads card images to Cloudinary.
func main() {
	cfg := config.Load()
	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.ArchiveEnabled() {
		log.Fatal("cloudinary is not configured")
	}

	db, err := store.Open(ctx, cfg.CardsDBDriver, cfg.CardsDBDSN)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx, cardvault.Schema); err != nil {
		log.Fatal("db migrate failed", zap.Error(err))
	}

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	if !rdb.Healthy(ctx) {
		log.Warn("redis not reachable yet, consumer will retry", zap.String("addr", cfg.RedisAddr))
	}

	msgs, err := queue.NewRedisQueue(rdb.Client, queue.DefaultKey).Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	up := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	log.Info("worker started", zap.String("queue", queue.DefaultKey))
	archive.NewArchiver(up, cardvault.NewRepository(db)).Run(ctx, msgs)
	log.Info("worker stopped")
}
