package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Load reads .env (if present) into the process environment and parses Config from it.
func Load() (*Config, error) {
	// missing .env is fine in prod
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Paystack.SecretKey == "" {
		return errors.New("PAYSTACK_SECRET_KEY required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Events.Broker {
	case "none", "rabbitmq", "kafka":
	default:
		return fmt.Errorf("unsupported EVENTS_BROKER %q", c.Events.Broker)
	}
	return nil
}

func (c *Config) ServerAddr() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}
