package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendvault/internal/attendance"
	"attendvault/internal/config"
	"attendvault/internal/handler"
	"attendvault/internal/httpmiddleware"
	"attendvault/internal/logger"
	"attendvault/internal/store"
)

func main() {
	cfg := config.Load()
	log, err := logger.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("attendance server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.App, log *zap.Logger) error {
	db, err := store.Open(ctx, cfg.AttendanceDBDriver, cfg.AttendanceDBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx, attendance.Schema); err != nil {
		return err
	}

	deps := handler.Deps{
		Config: cfg,
		Logger: log,
		Health: map[string]handler.Pinger{"db": db},
	}
	if cfg.RateLimitBackend == "redis" {
		rdb := store.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		deps.Limiter = httpmiddleware.NewRedisWindow(rdb.Client, "attendance:ratelimit", cfg.RateLimitPerMin)
		deps.Health["redis"] = rdb
	}

	svc := attendance.NewService(attendance.NewRepository(db))
	return handler.Serve(ctx, ":"+cfg.AttendancePort, handler.NewAttendanceRouter(svc, deps))
}
