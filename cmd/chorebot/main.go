package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"chorebot/internal/bot"
	"chorebot/internal/config"
	"chorebot/internal/logging"
	"chorebot/internal/repository"
	"chorebot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info")
		fallback.Fatal().Err(err).Msg("config")
	}

	log := logging.New(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("timezone")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	templateRepo := repository.NewTemplateRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("bot api")
	}
	log.Info().Str("account", api.Self.UserName).Msg("bot authorized")

	clock := service.NewClock(loc)
	messenger := bot.NewMessenger(api, log)
	notifier := service.NewNotifier(instanceRepo, notificationRepo, messenger, clock, log)
	materializer := service.NewMaterializer(templateRepo, clock, cfg.CutoffHour, log)
	reminders := service.NewReminderEngine(instanceRepo, scheduleRepo, clock, log)
	engine := service.NewEngine(materializer, reminders, notifier, log)

	telegramBot := bot.New(api, templateRepo, scheduleRepo, instanceRepo, notifier, log)

	scheduler := service.NewSchedulerService(loc)
	if _, err := scheduler.ScheduleInterval(cfg.TickInterval, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), cfg.TickInterval)
		defer cancel()
		if err := engine.Tick(tickCtx); err != nil {
			log.Error().Err(err).Msg("tick aborted")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule tick")
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info().Dur("tick", cfg.TickInterval).Time("started", time.Now().In(loc)).Msg("chore bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
