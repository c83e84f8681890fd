package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"task-manager/internal/app"
	"task-manager/internal/bot"
	"task-manager/internal/config"
	"task-manager/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.WithError(err).Warn("close storage")
		}
	}()

	telegramBot, err := bot.New(cfg.TelegramToken, application)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	sendReports := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		sent, err := telegramBot.SendReports(jobCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("report")
			return
		}
		log.WithField("sent", sent).Info("reports delivered")
	}

	scheduler := service.NewSchedulerService(time.Local)
	if cfg.ReportInterval > 0 {
		if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, sendReports); err != nil {
			log.Fatalf("schedule reports: %v", err)
		}
	}
	if cfg.ReportTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReportTime, sendReports); err != nil {
			log.Fatalf("schedule daily report: %v", err)
		}
	}
	if scheduler.Entries() > 0 {
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Info("task manager bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Info("shutdown complete")
}
