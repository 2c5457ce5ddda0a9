package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	// RelayURL points at a running relay. Empty starts one in-process.
	RelayURL     string        `env:"ZMASK_RELAY_URL"     validate:"omitempty,url"`
	RelayAddr    string        `env:"ZMASK_RELAY_ADDR"    envDefault:":8787"               validate:"required"`
	ProviderURL  string        `env:"ZMASK_PROVIDER_URL"  envDefault:"https://api.mail.tm" validate:"required,url"`
	PollInterval time.Duration `env:"ZMASK_POLL_INTERVAL" envDefault:"5s"                  validate:"gt=0s"`
}

// LoadConfig reads .env if present, then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	return parseConfig(env.ToMap(os.Environ()))
}

// parseConfig reads configuration from an explicit environment.
func parseConfig(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
