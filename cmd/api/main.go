package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"graintrade.org/internal/auth"
	"graintrade.org/internal/config"
	"graintrade.org/internal/httpapi"
	"graintrade.org/internal/migrate"
	"graintrade.org/internal/notify"
	"graintrade.org/internal/obs"
	"graintrade.org/internal/users"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := obs.SetLevel(cfg.LogLevel); err != nil {
		log.WithError(err).Warn("invalid LOG_LEVEL, keeping info")
	}

	// Инициализация observability (регистрация метрик)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, repo := openUsers(cfg, log)

	hasher := auth.NewHasher(cfg.BcryptCost)
	codec, err := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.JWTAlgorithm, cfg.TokenTTL())
	if err != nil {
		log.WithError(err).Fatal("token codec")
	}
	svc := auth.NewService(repo, hasher, codec)
	authz := auth.NewAuthorizer(codec, repo)

	probe := httpapi.ReadyProbe{DB: db}
	var notifier notify.Notifier = notify.Nop{}
	var async *notify.Async
	var redisNotifier *notify.RedisNotifier
	if cfg.RedisURL != "" {
		redisNotifier, err = notify.NewRedisNotifierFromURL(cfg.RedisURL, cfg.NotifyStream)
		if err != nil {
			log.WithError(err).Fatal("redis notifier")
		}
		probe.Redis = redisNotifier
		async = notify.NewAsync(redisNotifier, 5*time.Second)
		notifier = async
	}

	proxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.WithError(err).Fatal("trusted proxies")
	}

	// HTTP API
	api := httpapi.New(probe, version,
		httpapi.WithAppName(cfg.AppName),
		httpapi.WithAuth(svc, authz),
		httpapi.WithUsers(repo),
		httpapi.WithNotifier(notifier),
		httpapi.WithLoginRateLimit(cfg.LoginRateBurst, cfg.LoginRate()),
		httpapi.WithTrustedProxies(proxies),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithFields(logrus.Fields{
		"app":     cfg.AppName,
		"version": version,
		"addr":    srv.Addr,
		"alg":     codec.Algorithm(),
		"dev":     cfg.DevMode,
	}).Info("starting api")

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if async != nil {
		async.Wait()
	}
	if redisNotifier != nil {
		_ = redisNotifier.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	log.Info("stopped")
}

// openUsers returns the Postgres store, or an in-memory one in dev mode
// without a database.
func openUsers(cfg config.Config, log *logrus.Logger) (*sql.DB, users.Repository) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, using in-memory user store")
		return nil, users.NewMemoryRepository()
	}
	db, err := users.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open db")
	}

	if cfg.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		mgr, err := migrate.NewManager(db)
		if err != nil {
			log.WithError(err).Fatal("migrations")
		}
		if err := mgr.Up(ctx); err != nil {
			log.WithError(err).Fatal("migrations")
		}
	}
	return db, users.NewPostgresRepository(db)
}
