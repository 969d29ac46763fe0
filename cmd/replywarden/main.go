package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/replywarden/internal/bot"
	"github.com/iamwavecut/replywarden/internal/config"
	"github.com/iamwavecut/replywarden/internal/db/sqlite"
	"github.com/iamwavecut/replywarden/internal/event"
	"github.com/iamwavecut/replywarden/internal/handlers"
	"github.com/iamwavecut/replywarden/internal/infra"
	"github.com/iamwavecut/replywarden/internal/lifecycle"
	"github.com/iamwavecut/replywarden/internal/moderation"
	"github.com/iamwavecut/replywarden/internal/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env, err := config.LoadEnv(ctx)
	if err != nil {
		log.WithError(err).Fatalln("cant load environment")
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(env.LogLevel))

	cfg, err := config.LoadFile(env.ConfigPath)
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}

	if err := observability.Init(ctx); err != nil {
		log.WithError(err).Fatalln("cant initialize observability")
	}

	dbClient, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), env.DBName)
	if err != nil {
		log.WithError(err).Fatalln("cant open database")
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.WithError(err).Errorln("cant close database")
		}
	}()

	botAPI, err := api.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(env.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()
	log.WithField("bot", botAPI.Self.UserName).Info("authorized")

	gateway := moderation.NewTelegramGateway(botAPI)
	bus := event.NewBus()
	worker := event.NewWorker(bus)
	moderation.RegisterMessageJanitor(worker, gateway)

	cache := moderation.NewHistoryCache()
	classifier := moderation.NewClassifier(cache, cfg)
	notifier := moderation.NewNotifier(gateway, cfg, bus)
	escalator := moderation.NewEscalator(dbClient, gateway, notifier, cfg)

	service := bot.NewService(botAPI, dbClient, cfg)
	bot.RegisterUpdateHandler("admin_actions", handlers.NewAdminActions(service, gateway, notifier))
	bot.RegisterUpdateHandler("violations", handlers.NewViolations(service, classifier, escalator, notifier, gateway))

	runtime := lifecycle.NewRuntime(
		worker,
		moderation.NewSweeper(cache),
		moderation.NewPruner(dbClient, cfg.RetentionWindow()),
		observability.NewMetricsServer(env.MetricsAddr),
	)
	if err := runtime.Start(ctx); err != nil {
		log.WithError(err).Fatalln("cant start runtime")
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := runtime.Stop(stopCtx); err != nil {
			log.WithError(err).Errorln("cant stop runtime cleanly")
		}
	}()

	updateProcessor := bot.NewUpdateProcessor(service, []string{"admin_actions", "violations"})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		infra.GoRecoverable(-1, "update_loop", func() {
			updateConfig := api.NewUpdate(0)
			updateConfig.Timeout = 60
			updateChan, errorChan := bot.GetUpdatesChans(ctx, botAPI, updateConfig)
			for {
				select {
				case err := <-errorChan:
					log.WithError(err).Errorln("bot api get updates error")
					return
				case update := <-updateChan:
					if err := updateProcessor.Process(ctx, &update); err != nil {
						log.WithError(err).Errorln("cant process update")
					}
				case <-ctx.Done():
					return
				}
			}
		})
		return ctx.Err()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.WithError(err).Errorln("no more updates")
	}
	log.Info("shut down")
}
