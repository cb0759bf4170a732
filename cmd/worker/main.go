package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailorders/internal/config"
	"retailorders/internal/infra/db"
	"retailorders/internal/infra/kafka"
	infraRepo "retailorders/internal/infra/repository"
	"retailorders/internal/logging"
	"retailorders/internal/task"
	"retailorders/internal/usecase"
	"retailorders/internal/worker"
)

const consumerGroup = "retail-worker"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("worker", "err", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(cfg config.Config, log *slog.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required for the worker")
	}

	gormDB, err := db.Connect(cfg, log)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	//取り込んだ商品のサムネイル生成は同じトピックへ積む
	dispatcher := task.NewDispatcher(log, kafka.NewProducer(cfg.KafkaBrokers, cfg.TaskTopic), 64)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dispatcher.Close(closeCtx)
	}()

	productUC := usecase.NewProductUsecase(
		infraRepo.NewProductGormRepository(gormDB),
		infraRepo.NewStoreGormRepository(gormDB),
		infraRepo.NewCategoryGormRepository(gormDB),
		infraRepo.NewTxManagerGorm(gormDB),
		dispatcher,
		log,
	)
	w := worker.New(log, productUC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(log, cfg.KafkaBrokers, cfg.TaskTopic, consumerGroup)
	log.Info("worker started", "topic", cfg.TaskTopic, "group", consumerGroup)
	return consumer.Run(ctx, w.Handle)
}
