package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"matatu_hub/internal/config"
	"matatu_hub/internal/controllers"
	"matatu_hub/internal/logger"
	"matatu_hub/internal/middleware"
	"matatu_hub/internal/notify"
	"matatu_hub/internal/routes"
	"matatu_hub/internal/services"
)

func main() {
	cfg := config.Load()

	// Initialize structured logging to file
	logOut := logger.Setup(logger.Options{File: cfg.LogFile, Level: cfg.LogLevel})
	gin.SetMode(cfg.GinMode)
	middleware.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	// Connect to the database
	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database init failed")
	}

	hub := notify.NewHub()
	defer hub.Close()

	channels := notify.Fanout{notify.LogNotifier{}, hub}
	var cache services.RouteCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logrus.WithError(err).Warn("redis unreachable; stream and cache calls will fail softly")
		}
		cancel()
		channels = append(channels, notify.NewStreamNotifier(rdb, cfg.NotifyStream))
		cache = services.NewRedisRouteCache(rdb, cfg.RouteCacheTTL)
	}

	h := controllers.New(db, notify.NewRecorder(db, channels), cache, hub)
	r := routes.SetupRouter(h, routes.Options{CORSOrigins: cfg.CORSOrigins, AccessLog: logOut})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
}
