package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/internal/container"
	mongoinfra "github.com/oksasatya/reach-identity/internal/infrastructure/mongo"
	pginfra "github.com/oksasatya/reach-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/reach-identity/internal/interface/middleware"
	"github.com/oksasatya/reach-identity/internal/router"
	"github.com/oksasatya/reach-identity/pkg/helpers"
	"github.com/oksasatya/reach-identity/pkg/mailer"
	"github.com/oksasatya/reach-identity/pkg/sms"
	"github.com/oksasatya/reach-identity/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	switch cfg.RecordStore {
	case "postgres":
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		container.SetPGPool(pool)
	case "mongo":
		client, err := mongoinfra.Connect(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := mongoinfra.NewIdentityRepository(client.Database(cfg.MongoDatabase)).EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongodb indexes: %v", err)
		}
		container.SetMongo(client)
	}

	// Redis backs the shared pending store and rate limiting
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		if cfg.PendingStore == "redis" {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		logger.WithError(err).Warn("redis unavailable; rate limiting disabled")
		_ = rdb.Close()
	} else {
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	}

	if cfg.MailSendEnabled {
		switch cfg.NotifyMode {
		case "queue":
			pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, cfg.RabbitMQSMSQueue)
			if err != nil {
				log.Fatalf("failed to connect to rabbitmq: %v", err)
			}
			defer pub.Close()
			container.SetRabbitPub(pub)
		case "direct":
			if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
				container.SetMailgun(mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender))
			}
			if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
				container.SetTwilio(sms.NewTwilio(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromPhone))
			}
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		container.SetES(es)
	}

	if cfg.DebugMetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		container.SetRegistry(reg)
	}

	// Gin engine and global middleware
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	svc, err := router.InitModules(reg)
	if err != nil {
		log.Fatalf("failed to init modules: %v", err)
	}
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return svc.RunReconciler(gctx, cfg.ReconcileInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("server stopped with error")
	}
	logger.Info("server exited properly")
}
