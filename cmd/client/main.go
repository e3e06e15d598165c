// Package main runs the realtime sync core with its local HTTP API and graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ti-eeepdjmm/epesportes-app-sub000/config"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/appstate"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/httpapi"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/internal/session"
	"github.com/ti-eeepdjmm/epesportes-app-sub000/pkg/redis"
)

func main() {
	fmt.Println(color.GreenString("epesportes sync"))
	color.HiBlack("feed, polls and notifications kept live over the push socket\n")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	ctx := context.Background()
	var tokens session.TokenStore = session.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		tokens = session.NewRedisStore(rdb.Client, cfg.Redis.SessionKey)
	}

	st, err := appstate.New(appstate.Options{Config: *cfg, Tokens: tokens}, logger)
	if err != nil {
		logger.Fatal("state", zap.Error(err))
	}
	defer st.Close()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	go st.Run(runCtx)

	// A token persisted by a previous run resumes the session.
	if err := st.Resync(ctx); err != nil {
		logger.Warn("initial sync failed", zap.Error(err))
	}

	var scheduler *cron.Cron
	if cfg.Sync.Schedule != "" {
		scheduler = cron.New(cron.WithLogger(cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))))
		_, err := scheduler.AddFunc(cfg.Sync.Schedule, func() {
			syncCtx, cancel := context.WithTimeout(runCtx, cfg.API.Timeout*time.Duration(cfg.API.Attempts+1))
			defer cancel()
			if err := st.Resync(syncCtx); err != nil {
				logger.Warn("scheduled sync failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Fatal("sync schedule", zap.String("schedule", cfg.Sync.Schedule), zap.Error(err))
		}
		scheduler.Start()
		logger.Info("scheduled sync enabled", zap.String("schedule", cfg.Sync.Schedule))
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      httpapi.NewRouter(st, cfg.HTTP.CORSAllowedOrigins, logger.Named("http")),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("local api listening", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	st.Bridge.Stop()
	runCancel()
	logger.Info("client stopped")
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}
