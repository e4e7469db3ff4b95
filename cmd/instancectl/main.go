package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zllovesuki/launchpad/boot"
	"github.com/zllovesuki/launchpad/config"
	"github.com/zllovesuki/launchpad/external"
	"github.com/zllovesuki/launchpad/instance"
	"github.com/zllovesuki/launchpad/liveness"
	"github.com/zllovesuki/launchpad/poll"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Build-time injected variables
var (
	Version = ""
)

func main() {
	action := flag.String("action", "state", "one of: state, start, stop, wait, boot")
	target := flag.String("state", "RUNNING", "target state name for -action wait")
	instanceID := flag.String("instance", "", "overrides INSTANCE_ID")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Cannot initialize logger: %v\n", err)
	}
	logger = logger.With(zap.String("Version", Version))
	defer logger.Sync()

	_, dotFile := config.Environ()
	if err := godotenv.Load(dotFile); err != nil && !os.IsNotExist(err) {
		logger.Fatal("Cannot load configurations from .env",
			zap.Error(err),
		)
	}
	cfg, err := config.FromEnv(os.Getenv)
	if err != nil {
		logger.Fatal("Cannot load configurations",
			zap.Error(err),
		)
	}
	if len(*instanceID) > 0 {
		cfg.InstanceID = *instanceID
	}
	if len(cfg.InstanceID) == 0 {
		logger.Fatal("INSTANCE_ID or -instance is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := external.NewProvider(ctx, cfg.Backend, cfg.AWSRegion, logger)
	if err != nil {
		logger.Fatal("Cannot initialize instance provider",
			zap.Error(err),
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

	switch *action {
	case "state":
		fmt.Println(controller.CurrentState(ctx))
	case "start":
		exit(report(controller.Start(ctx)))
	case "stop":
		exit(report(controller.Stop(ctx)))
	case "wait":
		code, ok := instance.ParseStateName(*target)
		if !ok {
			logger.Fatal("Invalid target state",
				zap.String("State", *target),
			)
		}
		exit(report(controller.WaitFor(ctx, code)))
	case "boot":
		if err := cfg.Validate(); err != nil {
			logger.Fatal("Cannot boot with an invalid configuration",
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
		orchestrator, err := boot.NewOrchestrator(boot.Options{
			Instance:         controller,
			Liveness:         probe,
			LivenessMaxTicks: cfg.LivenessMaxTicks,
			InstanceID:       cfg.InstanceID,
			Logger:           logger,
		})
		if err != nil {
			logger.Fatal("Cannot initialize boot Orchestrator",
				zap.Error(err),
			)
		}
		err = orchestrator.Run(ctx)
		fmt.Println(orchestrator.Phase())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(false)
		}
	default:
		flag.Usage()
		exit(false)
	}
}

func report(outcome poll.Outcome[instance.StateCode]) bool {
	code, err := outcome.Result()
	fmt.Printf("%s %s (%d ticks, %s)\n", outcome.Status, code, outcome.Ticks, outcome.Elapsed)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return outcome.Ok()
}

func exit(ok bool) {
	if !ok {
		os.Exit(1)
	}
}
