package router

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/reach-identity/config"
	"github.com/oksasatya/reach-identity/internal/application"
	"github.com/oksasatya/reach-identity/internal/container"
	repo "github.com/oksasatya/reach-identity/internal/domain/repository"
	"github.com/oksasatya/reach-identity/internal/infrastructure/memory"
	mongoinfra "github.com/oksasatya/reach-identity/internal/infrastructure/mongo"
	"github.com/oksasatya/reach-identity/internal/infrastructure/notify"
	pginfra "github.com/oksasatya/reach-identity/internal/infrastructure/postgres"
	redisinfra "github.com/oksasatya/reach-identity/internal/infrastructure/redis"
	"github.com/oksasatya/reach-identity/internal/infrastructure/search"
	handlers "github.com/oksasatya/reach-identity/internal/interface/http"
	"github.com/oksasatya/reach-identity/internal/router/modules"
)

type IdentityModuleDeps struct {
	Repo    repo.IdentityRepository
	Pending repo.PendingStore
	Service *application.IdentityService
	Handler *handlers.IdentityHandler
}

func buildRecordStore(cfg *config.Config) (repo.IdentityRepository, error) {
	switch cfg.RecordStore {
	case "postgres":
		if container.GetPGPool() == nil {
			return nil, fmt.Errorf("record store postgres: pool not initialized")
		}
		return pginfra.NewIdentityRepository(container.GetPGPool()), nil
	case "mongo":
		if container.GetMongo() == nil {
			return nil, fmt.Errorf("record store mongo: client not initialized")
		}
		return mongoinfra.NewIdentityRepository(container.GetMongo().Database(cfg.MongoDatabase)), nil
	case "memory":
		return memory.NewIdentityRepository(), nil
	default:
		return nil, fmt.Errorf("unknown record store %q", cfg.RecordStore)
	}
}

func buildPendingStore(cfg *config.Config) (repo.PendingStore, error) {
	switch cfg.PendingStore {
	case "memory":
		return memory.NewPendingStore(), nil
	case "redis":
		if container.GetRedis() == nil {
			return nil, fmt.Errorf("pending store redis: client not initialized")
		}
		return redisinfra.NewPendingStore(container.GetRedis(), cfg.PendingClaimTTL), nil
	default:
		return nil, fmt.Errorf("unknown pending store %q", cfg.PendingStore)
	}
}

func buildGateway(cfg *config.Config, logger *logrus.Logger) (application.NotificationGateway, error) {
	if !cfg.MailSendEnabled {
		return notify.LogGateway{Logger: logger}, nil
	}
	switch cfg.NotifyMode {
	case "queue":
		if container.GetRabbitPub() == nil {
			return nil, fmt.Errorf("notify mode queue: rabbitmq publisher not initialized")
		}
		return notify.NewQueueGateway(container.GetRabbitPub(), cfg), nil
	case "direct":
		gw := notify.NewDirectGateway(nil, nil, cfg)
		if m := container.GetMailgun(); m != nil {
			gw.Mail = m
		}
		if t := container.GetTwilio(); t != nil {
			gw.SMS = t
		}
		return gw, nil
	default:
		return nil, fmt.Errorf("unknown notify mode %q", cfg.NotifyMode)
	}
}

func buildIdentityDeps() (IdentityModuleDeps, error) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	records, err := buildRecordStore(cfg)
	if err != nil {
		return IdentityModuleDeps{}, err
	}
	pending, err := buildPendingStore(cfg)
	if err != nil {
		return IdentityModuleDeps{}, err
	}
	gw, err := buildGateway(cfg, logger)
	if err != nil {
		return IdentityModuleDeps{}, err
	}
	codes, err := application.NewCodeGenerator(cfg.VerificationCodeMode, cfg.VerificationCodeLength, cfg.VerificationFixedCode)
	if err != nil {
		return IdentityModuleDeps{}, err
	}
	passwords, err := application.NewPasswordHasher(cfg.PasswordScheme)
	if err != nil {
		return IdentityModuleDeps{}, err
	}

	var metrics *application.Metrics
	if reg := container.GetRegistry(); reg != nil {
		metrics = application.NewMetrics(reg)
	}

	opts := []application.Option{
		application.WithMetrics(metrics),
		application.WithRequireVerified(cfg.SignInRequireVerified),
		application.WithDispatchOnSignUp(cfg.DispatchOnSignUp),
		application.WithRehydrateGrace(time.Minute),
	}
	if es := container.GetES(); es != nil {
		opts = append(opts, application.WithDirectory(search.NewDirectory(es, cfg.ESIdentitiesIndex)))
	}

	dispatcher := application.NewDispatcher(pending, gw, cfg.AdminPhoneNumber, logger, metrics)
	service := application.NewIdentityService(records, pending, dispatcher, codes, passwords, logger, opts...)

	return IdentityModuleDeps{
		Repo:    records,
		Pending: pending,
		Service: service,
		Handler: handlers.NewIdentityHandler(service, logger),
	}, nil
}

// InitModules builds every module from the container singletons and adds
// them to the registry. The identity service is returned so the caller can
// run its reconciler.
func InitModules(r *Registry) (*application.IdentityService, error) {
	deps, err := buildIdentityDeps()
	if err != nil {
		return nil, err
	}
	r.Add(modules.NewIdentityModule(deps.Handler, container.GetRedis()))
	if cfg := container.GetConfig(); cfg != nil && cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(container.GetRedis(), container.GetRegistry()))
	}
	return deps.Service, nil
}
