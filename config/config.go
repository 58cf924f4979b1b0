package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host        string `mapstructure:"host"`
		Port        string `mapstructure:"port"`
		User        string `mapstructure:"user"`
		Password    string `mapstructure:"password"`
		Name        string `mapstructure:"name"`
		SSLMode     string `mapstructure:"sslmode"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`
	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Server struct {
		Port            string        `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	JWT struct {
		SecretKey       string        `mapstructure:"secret_key"`
		Issuer          string        `mapstructure:"issuer"`
		Audience        string        `mapstructure:"audience"`
		AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
		BearerTokenTTL  time.Duration `mapstructure:"bearer_token_ttl"`
		RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
		ClockSkew       time.Duration `mapstructure:"clock_skew"`
	} `mapstructure:"jwt"`
	Security struct {
		BcryptCost       int           `mapstructure:"bcrypt_cost"`
		MaxLoginFailures int64         `mapstructure:"max_login_failures"`
		LoginFailureTTL  time.Duration `mapstructure:"login_failure_ttl"`
		RateLimitRPS     float64       `mapstructure:"rate_limit_rps"`
		RateLimitBurst   int           `mapstructure:"rate_limit_burst"`
	} `mapstructure:"security"`
}

// DatabaseURL renders the connection settings as a postgres:// URL, the form
// golang-migrate expects.
func (c *Config) DatabaseURL() string {
	db := c.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.Name, db.SSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("jwt.issuer", "go-employee-api")
	v.SetDefault("jwt.audience", "go-employee-api-clients")
	v.SetDefault("jwt.access_token_ttl", 15*time.Minute)
	v.SetDefault("jwt.bearer_token_ttl", 8*time.Hour)
	v.SetDefault("jwt.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.clock_skew", time.Duration(0))

	v.SetDefault("security.bcrypt_cost", 14)
	v.SetDefault("security.max_login_failures", 5)
	v.SetDefault("security.login_failure_ttl", 15*time.Minute)
	v.SetDefault("security.rate_limit_rps", 1.0)
	v.SetDefault("security.rate_limit_burst", 10)
}

// LoadConfig reads config.yml from path and overlays APP_* environment
// variables (APP_JWT_SECRET_KEY overrides jwt.secret_key). A missing file is
// not an error; a missing signing secret is.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("app")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"jwt.secret_key", "database.user", "database.password", "database.name", "redis.password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("jwt.secret_key must be set")
	}
	if cfg.JWT.ClockSkew < 0 {
		return nil, errors.New("jwt.clock_skew must not be negative")
	}

	return &cfg, nil
}
