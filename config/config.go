// Package config loads the launchpad configuration from dotenv files and the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zllovesuki/launchpad/spec"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	extErrors "github.com/pkg/errors"
)

// Environment is the type for defining the running environment
type Environment string

// define constants
const (
	EnvDevelopment Environment = "Dev"
	EnvProduction  Environment = "Prod"
)

// Config is everything the binaries need to wire the boot sequence
type Config struct {
	Environment Environment

	Port       string       `validate:"required,numeric"`
	Backend    spec.Backend `validate:"oneof=ec2 docker"`
	InstanceID string       `validate:"required"`
	AWSRegion  string       `validate:"required_if=Backend ec2"`

	LivenessURL string `validate:"required,url"`
	RedirectURL string `validate:"required,url"`
	PublicDir   string

	InstanceMaxTicks     int           `validate:"min=0"`
	InstancePollInterval time.Duration `validate:"gt=0"`
	LivenessMaxTicks     int           `validate:"min=0"`
	LivenessPollInterval time.Duration `validate:"gt=0"`
	ProbeTimeout         time.Duration `validate:"gt=0"`

	CORSOrigins []string

	AMQPURI          string `validate:"omitempty,url"`
	RedisURI         string
	RedisPW          string
	PostgresURI      string
	PostgresMaxConns int `validate:"min=0"`
}

// Environ returns the running environment and its dotenv file, selected by ENV
func Environ() (Environment, string) {
	if os.Getenv("ENV") == "production" {
		return EnvProduction, ".env.production"
	}
	return EnvDevelopment, ".env.development"
}

// Load reads dotFile into the process environment, then builds and validates a Config.
// A missing dotFile is not an error: the environment alone may carry everything.
func Load(dotFile string) (*Config, error) {
	if len(dotFile) > 0 {
		if err := godotenv.Load(dotFile); err != nil && !os.IsNotExist(err) {
			return nil, extErrors.Wrap(err, "Cannot load configurations from .env")
		}
	}
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from a lookup function, applying defaults
func FromEnv(getenv func(string) string) (*Config, error) {
	env := EnvDevelopment
	if getenv("ENV") == "production" {
		env = EnvProduction
	}
	cfg := &Config{
		Environment: env,
		Port:        withDefault(getenv("PORT"), spec.DefaultPort),
		Backend:     spec.Backend(withDefault(getenv("BACKEND"), string(spec.BackendEC2))),
		InstanceID:  getenv("INSTANCE_ID"),
		AWSRegion:   withDefault(getenv("AWS_REGION"), spec.DefaultRegion),
		LivenessURL: getenv("LIVENESS_PROBE_URL"),
		RedirectURL: getenv("REDIRECT_URL"),
		PublicDir:   withDefault(getenv("PUBLIC_DIR"), spec.DefaultPublicDir),
		AMQPURI:     getenv("AMQP_URI"),
		RedisURI:    getenv("REDIS_URI"),
		RedisPW:     getenv("REDIS_PW"),
		PostgresURI: getenv("POSTGRES_URI"),
		CORSOrigins: splitList(withDefault(getenv("CORS_ORIGINS"), "*")),
	}

	var err error
	if cfg.InstanceMaxTicks, err = intVar(getenv, "INSTANCE_MAX_TICKS", spec.InstanceMaxTicks); err != nil {
		return nil, err
	}
	if cfg.LivenessMaxTicks, err = intVar(getenv, "LIVENESS_MAX_TICKS", spec.LivenessMaxTicks); err != nil {
		return nil, err
	}
	if cfg.PostgresMaxConns, err = intVar(getenv, "POSTGRES_MAX_CONNS", 0); err != nil {
		return nil, err
	}
	if cfg.InstancePollInterval, err = durationVar(getenv, "INSTANCE_POLL_INTERVAL", spec.InstancePollInterval); err != nil {
		return nil, err
	}
	if cfg.LivenessPollInterval, err = durationVar(getenv, "LIVENESS_POLL_INTERVAL", spec.LivenessPollInterval); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = durationVar(getenv, "PROBE_TIMEOUT", spec.ProbeTimeout); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return extErrors.Wrap(err, "Invalid configuration")
	}
	return nil
}

func withDefault(v, def string) string {
	if len(v) == 0 {
		return def
	}
	return v
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); len(p) > 0 {
			list = append(list, p)
		}
	}
	return list
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if len(v) == 0 {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, extErrors.Wrapf(err, "Cannot parse %s", key)
	}
	return i, nil
}

// durationVar accepts Go durations ("5.5s") or plain milliseconds ("5500")
func durationVar(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if len(v) == 0 {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, extErrors.Wrapf(err, "Cannot parse %s", key)
	}
	return d, nil
}
