// The worker binary drains the delivery queues: appending issued
// quotes to the spreadsheet log and retrying failed quote emails.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/bakery-quote/internal/common"
	"github.com/noah-isme/bakery-quote/internal/config"
	"github.com/noah-isme/bakery-quote/internal/notify"
	"github.com/noah-isme/bakery-quote/internal/obs"
	"github.com/noah-isme/bakery-quote/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "bakery"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	var mailer *notify.SMTPEmail
	smtp := notify.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		User:       cfg.SMTPUser,
		Password:   cfg.SMTPPass,
		Sender:     cfg.SMTPFrom,
		SenderName: cfg.CompanyName,
		UseSSL:     cfg.SMTPSSL,
		UseTLS:     cfg.SMTPTLS,
	}
	if smtp.Configured() {
		mailer = notify.NewSMTPEmail(smtp)
	}
	var sheet *notify.SheetLog
	if cfg.SheetPath != "" {
		sheet = &notify.SheetLog{Path: cfg.SheetPath, Tab: cfg.SheetTab}
	}
	dispatcher := notify.Dispatcher{
		Sheet:      sheet,
		SenderName: cfg.CompanyName,
		Logger:     logger,
	}
	if mailer != nil {
		dispatcher.Email = mailer
	}

	sheetWorker := queue.Worker{
		R:                 redisClient,
		Prefix:            cfg.QueueRedisPrefix,
		Kind:              queue.KindQuoteSheet,
		Concurrency:       1,
		VisibilityTimeout: time.Minute,
		RetryBase:         2 * time.Second,
		RetryJitter:       0.2,
		Handler: func(taskCtx context.Context, task queue.Task) error {
			start := time.Now()
			err := handleSheet(dispatcher, task)
			obs.DeliveryAttemptLatency.WithLabelValues(task.Kind).Observe(obs.DurationMillis(time.Since(start)))
			if err != nil {
				obs.SheetAppendTotal.WithLabelValues("error").Inc()
				return err
			}
			obs.SheetAppendTotal.WithLabelValues("ok").Inc()
			return nil
		},
	}

	emailWorker := queue.Worker{
		R:                 redisClient,
		Prefix:            cfg.QueueRedisPrefix,
		Kind:              queue.KindQuoteEmail,
		Concurrency:       1,
		VisibilityTimeout: time.Minute,
		RetryBase:         5 * time.Second,
		RetryJitter:       0.2,
		Handler: func(taskCtx context.Context, task queue.Task) error {
			start := time.Now()
			status, err := handleEmail(dispatcher, task)
			obs.DeliveryAttemptLatency.WithLabelValues(task.Kind).Observe(obs.DurationMillis(time.Since(start)))
			obs.EmailDeliveryTotal.WithLabelValues(status).Inc()
			return err
		},
	}

	logger.Info().Msg("delivery worker starting")
	var wg sync.WaitGroup
	for _, w := range []queue.Worker{sheetWorker, emailWorker} {
		wg.Add(1)
		go func(w queue.Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Str("kind", w.Kind).Msg("worker stopped with error")
			}
		}(w)
	}
	wg.Wait()
	logger.Info().Msg("worker shutdown complete")
}

func handleSheet(d notify.Dispatcher, task queue.Task) error {
	var rec notify.Record
	if err := json.Unmarshal(task.Payload, &rec); err != nil {
		return fmt.Errorf("decode quote record: %w", err)
	}
	return d.AppendSheet(rec)
}

func handleEmail(d notify.Dispatcher, task queue.Task) (string, error) {
	var rec notify.Record
	if err := json.Unmarshal(task.Payload, &rec); err != nil {
		return "error", fmt.Errorf("decode quote record: %w", err)
	}
	status := d.SendQuoteEmail(rec, loadAttachments(rec))
	if status != notify.StatusSent {
		return status, fmt.Errorf("quote email delivery: %s", status)
	}
	return status, nil
}

func loadAttachments(rec notify.Record) []common.Attachment {
	mimes := map[string]string{
		".md":  "text/markdown",
		".txt": "text/plain",
		".pdf": "application/pdf",
	}
	var out []common.Attachment
	for _, path := range rec.DocumentPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		mime := mimes[filepath.Ext(path)]
		if mime == "" {
			mime = "application/octet-stream"
		}
		out = append(out, common.Attachment{Filename: filepath.Base(path), MIME: mime, Data: data})
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
