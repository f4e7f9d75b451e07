package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"

	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
	}
	Auth struct {
		JWTSecret  string
		Issuer     string
		AccessTTL  time.Duration
		RefreshTTL time.Duration
		BcryptCost int
	}
	Backend struct {
		Mode      string
		RemoteURL string
		Timeout   time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables and optional config files.
// Variables already present in the environment win over .env entries.
func Load() (Config, error) {
	_ = godotenv.Load() // optional file

	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/gateway.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.issuer", "auth-gateway")
	v.SetDefault("auth.accessttl", 5*time.Minute)
	v.SetDefault("auth.refreshttl", 24*time.Hour)
	v.SetDefault("auth.bcryptcost", 0)
	v.SetDefault("backend.mode", ModeLocal)
	v.SetDefault("backend.remoteurl", "")
	v.SetDefault("backend.timeout", 8*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("auth jwt secret is required")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database path is required for sqlite")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Backend.Mode {
	case ModeLocal:
	case ModeRemote:
		if strings.TrimSpace(c.Backend.RemoteURL) == "" {
			return errors.New("backend remote url is required in remote mode")
		}
		if c.Backend.Timeout <= 0 {
			return errors.New("backend timeout must be positive")
		}
	default:
		return fmt.Errorf("unknown backend mode %q", c.Backend.Mode)
	}
	return nil
}
