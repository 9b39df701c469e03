package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds the service configuration, parsed from the environment.
type Config struct {
	ServerAddr     string `env:"SERVER_ADDR"      envDefault:":8080"`
	MongoURI       string `env:"MONGO_URI"        envDefault:"mongodb://localhost:27017"`
	MongoDatabase  string `env:"MONGO_DATABASE"   envDefault:"bizchat"`
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	SMTPEnabled    bool   `env:"SMTP_ENABLED"     envDefault:"false"`

	Token TokenConfig
}

// TokenConfig holds session token configuration.
type TokenConfig struct {
	Secret    string        `env:"SESSION_TOKEN_SECRET"`
	Issuer    string        `env:"SESSION_TOKEN_ISSUER"     envDefault:"bizchat-api"`
	ExpiresIn time.Duration `env:"SESSION_TOKEN_EXPIRES_IN" envDefault:"720h"`
}

// New creates a Config instance from environment variables.
func New(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.GoogleClientID == "" {
		return fmt.Errorf("missing GOOGLE_CLIENT_ID environment variable")
	}
	if c.Token.Secret == "" {
		return fmt.Errorf("missing SESSION_TOKEN_SECRET environment variable")
	}

	return nil
}
