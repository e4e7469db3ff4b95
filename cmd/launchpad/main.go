package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zllovesuki/launchpad/boot"
	"github.com/zllovesuki/launchpad/broker"
	"github.com/zllovesuki/launchpad/config"
	"github.com/zllovesuki/launchpad/db"
	"github.com/zllovesuki/launchpad/external"
	"github.com/zllovesuki/launchpad/gateway"
	"github.com/zllovesuki/launchpad/history"
	"github.com/zllovesuki/launchpad/instance"
	"github.com/zllovesuki/launchpad/liveness"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v7"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	var logger *zap.Logger
	var err error

	// Determine running environment and initialize structural logger
	environment, dotFile := config.Environ()
	if environment == config.EnvProduction {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))
	defer logger.Sync()

	cfg, err := config.Load(dotFile)
	if err != nil {
		logger.Fatal("Cannot load configurations",
			zap.Error(err),
		)
	}

	// Initialize sentry for error reporting
	if err := sentry.Init(sentry.ClientOptions{
		Environment: string(environment),
		Debug:       environment == config.EnvDevelopment,
	}); err != nil {
		logger.Fatal("Cannot initialize sentry",
			zap.Error(err),
		)
	}
	defer sentry.Flush(time.Second * 2)

	// Attach sentry to zap so we can do automatic error capturing
	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": "launchpad",
		},
	}, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		logger.Fatal("Cannot attach sentry to logger",
			zap.Error(err),
		)
	}
	logger = zapsentry.AttachCoreToLogger(core, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := external.NewProvider(ctx, cfg.Backend, cfg.AWSRegion, logger)
	if err != nil {
		logger.Fatal("Cannot initialize instance provider",
			zap.Error(err),
			zap.String("Backend", string(cfg.Backend)),
		)
	}

	controller, err := instance.NewController(instance.ControllerOptions{
		Provider:   provider,
		InstanceID: cfg.InstanceID,
		Logger:     logger,
		MaxTicks:   cfg.InstanceMaxTicks,
		Interval:   cfg.InstancePollInterval,
	})
	if err != nil {
		logger.Fatal("Cannot initialize instance Controller",
			zap.Error(err),
		)
	}

	probe, err := liveness.NewProbe(liveness.Options{
		URL:      cfg.LivenessURL,
		Logger:   logger,
		Timeout:  cfg.ProbeTimeout,
		Interval: cfg.LivenessPollInterval,
	})
	if err != nil {
		logger.Fatal("Cannot initialize liveness Probe",
			zap.Error(err),
		)
	}

	notifiers := broker.Multi{}

	if len(cfg.AMQPURI) > 0 {
		amqpBroker, err := broker.NewAMQPBroker(logger, cfg.AMQPURI)
		if err != nil {
			logger.Fatal("Cannot connect to Broker",
				zap.Error(err),
			)
		}
		defer amqpBroker.Close()
		notifiers = append(notifiers, amqpBroker)
	}

	if len(cfg.RedisURI) > 0 {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisURI},
			Password: cfg.RedisPW,
			DB:       0,
		})
		if _, err := rdb.Ping().Result(); err != nil {
			logger.Fatal("Cannot connect to Redis",
				zap.Error(err),
			)
		}
		defer rdb.Close()
		redisBroker, err := broker.NewRedisBroker(rdb)
		if err != nil {
			logger.Fatal("Cannot initialize Redis Broker",
				zap.Error(err),
			)
		}
		notifiers = append(notifiers, redisBroker)
	}

	var historyManager *history.Manager
	if len(cfg.PostgresURI) > 0 {
		gormDB, err := db.New(db.Options{
			URI:          cfg.PostgresURI,
			Logger:       logger,
			MaxOpenConns: cfg.PostgresMaxConns,
		})
		if err != nil {
			logger.Fatal("Cannot connect to Postgres",
				zap.Error(err),
			)
		}
		historyManager, err = history.NewManager(logger, gormDB)
		if err != nil {
			logger.Fatal("Cannot initialize HistoryManager",
				zap.Error(err),
			)
		}
		notifiers = append(notifiers, historyManager)
	}

	bootOptions := boot.Options{
		Instance:         controller,
		Liveness:         probe,
		LivenessMaxTicks: cfg.LivenessMaxTicks,
		InstanceID:       cfg.InstanceID,
		Logger:           logger,
	}
	if len(notifiers) > 0 {
		bootOptions.Notifier = notifiers
	}
	orchestrator, err := boot.NewOrchestrator(bootOptions)
	if err != nil {
		logger.Fatal("Cannot initialize boot Orchestrator",
			zap.Error(err),
		)
	}

	serviceOptions := gateway.ServiceOptions{
		Orchestrator: orchestrator,
		Probe:        probe,
		InstanceID:   cfg.InstanceID,
		RedirectURL:  cfg.RedirectURL,
		PublicDir:    cfg.PublicDir,
		CORSOrigins:  cfg.CORSOrigins,
		BootContext:  ctx,
		Logger:       logger,
	}
	if historyManager != nil {
		serviceOptions.History = historyManager
	}
	service, err := gateway.NewService(serviceOptions)
	if err != nil {
		logger.Fatal("Cannot initialize Gateway Service Router",
			zap.Error(err),
		)
	}

	srv := &http.Server{
		Handler:           service.Router(),
		Addr:              ":" + cfg.Port,
		ReadHeaderTimeout: time.Second * 10,
	}

	go func() {
		logger.Info("Gateway listening",
			zap.String("Addr", srv.Addr),
			zap.String("Backend", string(cfg.Backend)),
			zap.String("InstanceID", cfg.InstanceID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Cannot serve gateway",
				zap.Error(err),
			)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Unable to shutdown gateway gracefully",
			zap.Error(err),
		)
	}
}
