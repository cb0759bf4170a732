package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailorders/internal/config"
	"retailorders/internal/handler"
	"retailorders/internal/infra/db"
	"retailorders/internal/infra/kafka"
	infraRepo "retailorders/internal/infra/repository"
	"retailorders/internal/logging"
	"retailorders/internal/ratelimit"
	"retailorders/internal/server"
	"retailorders/internal/task"
	"retailorders/internal/usecase"
	"retailorders/internal/validator"

	"github.com/redis/go-redis/v9"
)

func main() {
	//設定
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	//DB接続
	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	//レート制限のストア
	limiter, closeLimiter, err := newLimiterStore(cfg, log)
	if err != nil {
		log.Error("rate limit store", "err", err)
		os.Exit(1)
	}
	defer closeLimiter()

	//非同期タスク
	dispatcher := task.NewDispatcher(log, newProducer(cfg, log), 256)

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	storeRepo := infraRepo.NewStoreGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	contactRepo := infraRepo.NewContactGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo))
	productUC := usecase.NewProductUsecase(productRepo, storeRepo, categoryRepo, txm, dispatcher, log)
	catalogUC := usecase.NewCatalogUsecase(storeRepo, categoryRepo)
	cartUC := usecase.NewCartUsecase(txm)
	checkoutUC := usecase.NewCheckoutUsecase(txm, dispatcher, log)
	orderUC := usecase.NewOrderUsecase(orderRepo, orderItemRepo)
	contactUC := usecase.NewContactUsecase(contactRepo, validator.NewContactValidator())

	//Handler生成
	h := server.Handlers{
		Auth:    handler.NewAuthHandler(authUC),
		Product: handler.NewProductHandler(productUC, catalogUC),
		Order:   handler.NewOrderHandler(cartUC, checkoutUC, orderUC),
		Contact: handler.NewContactHandler(contactUC),
	}

	e := server.New(cfg, h, limiter, server.Deps{Log: log})

	//Server起動
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, e, cfg.ListenAddr(), log); err != nil {
		log.Error("http server", "err", err)
	}

	//送りかけのタスクを流し切る
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dispatcher.Close(closeCtx); err != nil {
		log.Warn("task dispatcher close", "err", err)
	}
	log.Info("shutdown complete")
}

// REDIS_URLがあればプロセス間で共有するカウンタ、無ければプロセス内
func newLimiterStore(cfg config.Config, log *slog.Logger) (ratelimit.Store, func(), error) {
	limits := ratelimit.Limits{
		Anon:   cfg.RateAnonLimit,
		User:   cfg.RateUserLimit,
		Window: cfg.RateWindow,
	}

	if cfg.RedisURL == "" {
		log.Info("rate limit store: memory")
		return ratelimit.NewMemoryStore(limits), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)
	log.Info("rate limit store: redis", "addr", opt.Addr)

	store := ratelimit.FailOpen{Store: ratelimit.NewRedisStore(rdb, limits), Log: log}
	return store, func() { _ = rdb.Close() }, nil
}

// KAFKA_BROKERSが無ければログに出すだけ
func newProducer(cfg config.Config, log *slog.Logger) task.Producer {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("task producer: log only")
		return task.LogProducer{Log: log}
	}
	log.Info("task producer: kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.TaskTopic)
	return kafka.NewProducer(cfg.KafkaBrokers, cfg.TaskTopic)
}
