package config

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/fitquest.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// RedisURL enables the activity relay when set.
	RedisURL string `env:"REDIS_URL"`

	// JWTSecret signs player tokens. When unset, Load generates a random
	// secret for this process and sets JWTSecretGenerated.
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"720h"`

	JWTSecretGenerated bool

	AdminUser         string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	Sensing SensingConfig `envPrefix:"SENSING_"`

	FlushInterval time.Duration `env:"FLUSH_INTERVAL" envDefault:"10s"`
	ActivityLimit int           `env:"ACTIVITY_LIMIT" envDefault:"500"`
}

// SensingConfig controls how capture sessions are fed with steps and
// geofence readings.
type SensingConfig struct {
	Mode             string        `env:"MODE" envDefault:"simulated"`
	StepInterval     time.Duration `env:"STEP_INTERVAL" envDefault:"1s"`
	GeofenceInterval time.Duration `env:"GEOFENCE_INTERVAL" envDefault:"5s"`
	GraceInterval    time.Duration `env:"GRACE_INTERVAL" envDefault:"5s"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.Sensing.Mode {
	case "simulated", "device":
	default:
		return nil, fmt.Errorf("invalid SENSING_MODE %q: want simulated or device", cfg.Sensing.Mode)
	}
	intervals := []struct {
		name string
		d    time.Duration
	}{
		{"SENSING_STEP_INTERVAL", cfg.Sensing.StepInterval},
		{"SENSING_GEOFENCE_INTERVAL", cfg.Sensing.GeofenceInterval},
		{"SENSING_GRACE_INTERVAL", cfg.Sensing.GraceInterval},
		{"FLUSH_INTERVAL", cfg.FlushInterval},
		{"TOKEN_TTL", cfg.TokenTTL},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return nil, fmt.Errorf("invalid %s %s: must be positive", iv.name, iv.d)
		}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = rand.Text()
		cfg.JWTSecretGenerated = true
	}
	if cfg.ActivityLimit < 0 {
		return nil, fmt.Errorf("invalid ACTIVITY_LIMIT %d: must not be negative", cfg.ActivityLimit)
	}
	return &cfg, nil
}
