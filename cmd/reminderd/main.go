package main

import (
	"context"
	"errors"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	reminderhandler "github.com/echojournal/reminderd/internal/api/handlers/reminder"
	userhandler "github.com/echojournal/reminderd/internal/api/handlers/user"
	"github.com/echojournal/reminderd/internal/api/router"
	"github.com/echojournal/reminderd/internal/api/server"
	"github.com/echojournal/reminderd/internal/config"
	"github.com/echojournal/reminderd/internal/notify"
	reminderrepo "github.com/echojournal/reminderd/internal/repository/reminder"
	userrepo "github.com/echojournal/reminderd/internal/repository/user"
	"github.com/echojournal/reminderd/internal/scheduler"
	remindersvc "github.com/echojournal/reminderd/internal/service/reminder"
	"github.com/echojournal/reminderd/internal/sweep"
	"github.com/echojournal/reminderd/internal/trigger"
	"github.com/echojournal/reminderd/pkg/email"
	"github.com/echojournal/reminderd/pkg/telegram"
	"github.com/echojournal/reminderd/pkg/webpush"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()
	_ = godotenv.Load()
	cfg := config.Must()
	val := validator.New()

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	reminders := reminderrepo.NewRepository(db)
	users := userrepo.NewRepository(db)

	dbNum, err := strconv.Atoi(cfg.Redis.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to parse redis database")
	}

	rdb := redis.New(cfg.Redis.Address, cfg.Redis.Password, dbNum)
	if err = rdb.Ping(ctx); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	dispatcher := buildDispatcher(cfg)

	sched := scheduler.New(cfg.Scheduler.ImmediateDelay)
	triggerHandler := trigger.NewHandler(reminders, users, dispatcher, sched)
	sched.SetHandler(triggerHandler)

	service := remindersvc.NewService(reminders, sched, triggerHandler, rdb)

	scheduled, err := service.Bootstrap(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to bootstrap reminder schedules")
	} else {
		zlog.Logger.Info().Int("count", scheduled).Msg("reminder schedules bootstrapped")
	}

	sweeper := sweep.New(reminders, triggerHandler, cfg.Sweep.Interval)
	go sweeper.Run(ctx)

	handler := reminderhandler.NewHandler(service, val, cfg)
	usersHandler := userhandler.NewHandler(users, val)
	r := router.New(handler, usersHandler)
	s := server.New(cfg.Server.HTTPPort, r)

	go func() {
		if err := s.ListenAndServe(); err != nil {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	if err := db.Master.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close master DB")
	}

	for i, slave := range db.Slaves {
		if err := slave.Close(); err != nil {
			zlog.Logger.Error().Err(err).Msgf("failed to close slave DB %d", i)
		}
	}
}

// buildDispatcher wires the configured delivery channels. Channels with
// missing configuration are left nil so dispatching to them degrades to
// a no-op instead of failing at startup or call time.
func buildDispatcher(cfg *config.Config) *notify.Dispatcher {
	var (
		pushClient     *webpush.Client
		telegramClient *telegram.Client
		emailClient    *email.Client
	)

	if c := webpush.NewClient(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber); c.Configured() {
		pushClient = c
	} else {
		zlog.Logger.Warn().Msg("VAPID keys not configured, push delivery disabled")
	}

	if c := telegram.NewClient(cfg.Telegram.Token); c.Configured() {
		telegramClient = c
	}

	smtpPort, err := strconv.Atoi(cfg.Email.SMTPPort)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("invalid smtp port, email delivery disabled")
	} else if c := email.NewClient(cfg.Email.SMTPHost, smtpPort, cfg.Email.Username, cfg.Email.Password, cfg.Email.From); c.Configured() {
		emailClient = c
	}

	// Interface-typed nils must stay nil interfaces inside the dispatcher.
	var (
		push notify.PushSender
		tg   notify.TextSender
		mail notify.EmailSender
	)
	if pushClient != nil {
		push = pushClient
	}
	if telegramClient != nil {
		tg = telegramClient
	}
	if emailClient != nil {
		mail = emailClient
	}

	return notify.NewDispatcher(push, tg, mail)
}
