package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig points at the ticker registry. An empty Host means no
// database; tickers come from Feed.Symbols instead.
type DatabaseConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type FeedConfig struct {
	Source        string        `mapstructure:"source"` // "rest" or "binance"
	BaseURL       string        `mapstructure:"base_url"`
	BinanceURL    string        `mapstructure:"binance_url"` // empty uses the public endpoint
	Interval      time.Duration `mapstructure:"interval"`
	Limit         int           `mapstructure:"limit"`
	Levels        int           `mapstructure:"levels"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Symbols       []string      `mapstructure:"symbols"`
	MaxLeverage   int           `mapstructure:"max_leverage"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// Load reads .env (if any), then the YAML file at configPath (or
// ./config.yaml when empty), then TRADEVIEW_* environment variables.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TRADEVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins)
	cfg.Feed.Symbols = splitList(cfg.Feed.Symbols)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "tradeview")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("feed.source", "rest")
	v.SetDefault("feed.base_url", "http://localhost:9000")
	v.SetDefault("feed.binance_url", "")
	v.SetDefault("feed.interval", 5000*time.Millisecond)
	v.SetDefault("feed.limit", 100)
	v.SetDefault("feed.levels", 0)
	v.SetDefault("feed.rate_per_second", 5.0)
	v.SetDefault("feed.symbols", []string{"BTCUSD"})
	v.SetDefault("feed.max_leverage", 10)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindLegacyEnv keeps the unprefixed DB_* and JWT_SECRET variables working.
func bindLegacyEnv(v *viper.Viper) {
	legacy := map[string]string{
		"database.user":     "DB_USER",
		"database.password": "DB_PASSWORD",
		"database.host":     "DB_HOST",
		"database.port":     "DB_PORT",
		"database.name":     "DB_NAME",
		"auth.jwt_secret":   "JWT_SECRET",
	}
	for key, env := range legacy {
		prefixed := "TRADEVIEW_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, env)
	}
}

// splitList lets list values arrive as one comma separated env string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Feed.Source {
	case "rest":
		if c.Feed.BaseURL == "" {
			return errors.New("feed.base_url is required for the rest source")
		}
	case "binance":
	default:
		return fmt.Errorf("unknown feed.source %q", c.Feed.Source)
	}
	if c.Feed.Interval <= 0 {
		return fmt.Errorf("feed.interval must be positive, got %s", c.Feed.Interval)
	}
	if c.Feed.MaxLeverage < 1 || c.Feed.MaxLeverage > 10 {
		return fmt.Errorf("feed.max_leverage must be within [1,10], got %d", c.Feed.MaxLeverage)
	}
	if c.Feed.Levels < 0 {
		return fmt.Errorf("feed.levels must not be negative, got %d", c.Feed.Levels)
	}
	return nil
}

// NewLogger builds the process logger from the logging section.
func (l LoggingConfig) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging.level: %w", err)
	}
	logger.SetLevel(level)
	switch l.Format {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json", "":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid logging.format %q", l.Format)
	}
	return logger, nil
}
