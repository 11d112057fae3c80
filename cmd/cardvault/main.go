package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"attendvault/internal/archive"
	"attendvault/internal/cardvault"
	"attendvault/internal/cloudinary"
	"attendvault/internal/config"
	"attendvault/internal/handler"
	"attendvault/internal/httpmiddleware"
	"attendvault/internal/logger"
	"attendvault/internal/ocrclient"
	"attendvault/internal/queue"
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
		log.Fatal("card vault server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.App, log *zap.Logger) error {
	db, err := store.Open(ctx, cfg.CardsDBDriver, cfg.CardsDBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx, cardvault.Schema); err != nil {
		return err
	}
	repo := cardvault.NewRepository(db)

	ocr := ocrclient.New(cfg.OCRServiceURL, cfg.OCRTimeout)
	if err := ocr.Health(ctx); err != nil {
		log.Warn("ocr service not reachable yet", zap.String("url", cfg.OCRServiceURL), zap.Error(err))
	}

	deps := handler.Deps{
		Config: cfg,
		Logger: log,
		Health: map[string]handler.Pinger{"db": db},
	}

	var rdb *store.Redis
	if cfg.QueueBackend == "redis" || cfg.RateLimitBackend == "redis" {
		rdb = store.NewRedis(cfg.RedisAddr)
		defer rdb.Close()
		deps.Health["redis"] = rdb
	}
	if cfg.RateLimitBackend == "redis" {
		deps.Limiter = httpmiddleware.NewRedisWindow(rdb.Client, "cardvault:ratelimit", cfg.RateLimitPerMin)
	}

	var sink cardvault.ImageSink
	if cfg.ArchiveEnabled() {
		var q queue.Queue
		if cfg.QueueBackend == "redis" {
			q = queue.NewRedisQueue(rdb.Client, queue.DefaultKey)
		} else {
			mem := queue.NewInMemory(64)
			msgs, err := mem.Consume(ctx)
			if err != nil {
				return err
			}
			up := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
			go archive.NewArchiver(up, repo).Run(ctx, msgs)
			q = mem
		}
		sink = archive.NewPublisher(q)
		log.Info("card image archive enabled", zap.String("queue", cfg.QueueBackend))
	}

	svc := cardvault.NewService(repo, ocr, sink)
	return handler.Serve(ctx, ":"+cfg.CardVaultPort, handler.NewCardVaultRouter(svc, deps))
}
