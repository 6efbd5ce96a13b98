package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/UnendingLoop/Watermarker/internal/imageproc"
	"github.com/UnendingLoop/Watermarker/internal/kafka"
	"github.com/UnendingLoop/Watermarker/internal/repository"
	"github.com/UnendingLoop/Watermarker/internal/service"
	"github.com/UnendingLoop/Watermarker/internal/storage"
	"github.com/UnendingLoop/Watermarker/internal/watermark"
	"github.com/UnendingLoop/Watermarker/internal/worker"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	lvl := appConfig.GetString("LOG_LEVEL")
	if lvl == "" {
		lvl = "info"
	}
	if err := zlog.SetLevel(lvl); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Listening to interruptions through context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// движок наложения собирается один раз и разделяется между задачами
	engine, err := newEngine(appConfig)
	if err != nil {
		log.Fatalf("Failed to configure watermark engine: %v", err)
	}

	// подключитсья к базе
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	// подключиться к хранилищу
	strg, err := storage.NewBlobStorage(ctx, appConfig, 10*time.Second)
	if err != nil {
		log.Fatalf("Blob-storage is unavailable: %v", err)
	}
	// создаем экземпляр репо
	repo := repository.NewPostgresWatermarkRepo(dbConn)
	// создаем экземпляр сервиса
	prefixes := service.PrefixesFromConfig(appConfig)
	var svc worker.WatermarkWorkerService = service.NewWatermarkService(repo, NoopPublisher{}, strg, prefixes)

	// ждем пока кафка раздуплится
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 5*time.Second); err != nil {
		log.Fatalf("Kafka is unavailable: %v", err)
	}
	// подключиться к кафке как читатель
	queue := make(chan kafkago.Message)
	retryStrategy := retry.Strategy{
		Attempts: 5,
		Delay:    2 * time.Second,
		Backoff:  1.5,
	}
	topic := appConfig.GetString("KAFKA_TOPIC")
	groupID := appConfig.GetString("KAFKA_GROUPID")
	cons := wbfkafka.NewConsumer([]string{broker}, topic, groupID)

	cons.StartConsuming(ctx, queue, retryStrategy)

	// Собираем воедино все что нужно воркеру и запускаем его
	maxPixels, err := optionalInt(appConfig, "WM_MAX_IMAGE_PIXELS")
	if err != nil {
		log.Fatalf("Invalid WM_MAX_IMAGE_PIXELS: %v", err)
	}
	wrk := worker.NewWorkerInstance(strg, svc, engine, queue, cons, prefixes.Result).WithMaxImagePixels(maxPixels)
	go wrk.StartWorker(ctx)

	// Waiting for interruption to stop context to start Graceful shutdown
	<-ctx.Done()

	shutdown(cons, dbConn)
	log.Println("Exiting worker...")
}

// newEngine читает WM_RESAMPLE_FILTER, WM_AUTOFIT_FRACTION и WM_MAX_MARK_PIXELS; пустые значения оставляют дефолты движка
func newEngine(cfg *config.Config) (*watermark.Engine, error) {
	filter, err := imageproc.FilterByName(cfg.GetString("WM_RESAMPLE_FILTER"))
	if err != nil {
		return nil, err
	}
	opts := []watermark.Option{watermark.WithFilter(filter)}

	if raw := cfg.GetString("WM_AUTOFIT_FRACTION"); raw != "" {
		fraction, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		opts = append(opts, watermark.WithAutoFitFraction(fraction))
	}

	maxMark, err := optionalInt(cfg, "WM_MAX_MARK_PIXELS")
	if err != nil {
		return nil, err
	}
	if maxMark > 0 {
		opts = append(opts, watermark.WithMaxMarkPixels(int(maxMark)))
	}

	return watermark.New(opts...)
}

// optionalInt - 0 если ключ не задан
func optionalInt(cfg *config.Config, key string) (int64, error) {
	raw := cfg.GetString(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func shutdown(cons *wbfkafka.Consumer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	// Closing Kafka connection:
	if err := cons.Close(); err != nil {
		log.Println("Failed to close Kafka-reader:", err)
	}
	log.Println("Kafka-consumer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
