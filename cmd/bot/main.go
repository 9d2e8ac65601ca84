// Command bot runs the member-counting Telegram bot: the update poller,
// the periodic reconciler, and the ops HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"tallybot/internal/api"
	"tallybot/internal/bot"
	"tallybot/internal/cache"
	"tallybot/internal/config"
	internaldb "tallybot/internal/db"
	"tallybot/internal/db/repository"
	"tallybot/internal/domain"
	adminsvc "tallybot/internal/service/admin"
	"tallybot/internal/service/membership"
	"tallybot/internal/tgapi"
)

func main() {
	if err := run(); err != nil {
		slog.Error("bot exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := internaldb.Open(cfg.DBPath, cfg.ReadMaxOpen)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if err := internaldb.RunMigrations(db.Write); err != nil {
		return err
	}

	groupRepo := repository.NewGroupRepo(db.Write, db.Read)
	adminRepo := repository.NewAdminRepo(db.Write, db.Read)

	var memberCache domain.MemberCache
	if cfg.Redis.Enabled() {
		redisCache, err := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			return err
		}
		defer redisCache.Close() //nolint:errcheck
		memberCache = redisCache
		logger.Info("member cache enabled", "addr", cfg.Redis.Addr)
	}

	members := membership.NewService(groupRepo, memberCache, logger)
	admins := adminsvc.NewService(adminRepo, logger)

	if cfg.SuperAdminID != 0 {
		if err := admins.EnsureSuperAdmin(ctx, cfg.SuperAdminID); err != nil {
			return err
		}
	}

	client := tgapi.New(cfg.BotToken, tgapi.WithRateLimit(cfg.TelegramRPS, cfg.TelegramBurst))
	reconciler := membership.NewReconciler(members, groupRepo, client, logger)

	scheduler := membership.NewScheduler(reconciler, admins, logger)
	if err := scheduler.Start(cfg.SyncSchedule, cfg.SweepSchedule); err != nil {
		return err
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewHandler(members, reconciler).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.New(client, members, admins, logger).Run(gctx)
	})
	g.Go(func() error {
		logger.Info("ops API listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("bot stopped")
	return err
}
