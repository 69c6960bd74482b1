package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"multicast-chat/internal/logger"
	"multicast-chat/internal/multicast"
	"multicast-chat/internal/netutil"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config must be identical in Group and Port across every participant;
// mismatches silently split the chat.
type Config struct {
	Name           string        `env:"MCHAT_NAME"`
	Group          string        `env:"MCHAT_GROUP,default=224.1.1.1"`
	Port           int           `env:"MCHAT_PORT,default=5004"`
	Interface      string        `env:"MCHAT_INTERFACE"`
	TTL            int           `env:"MCHAT_TTL,default=1"`
	Loopback       bool          `env:"MCHAT_LOOPBACK,default=true"`
	SuppressEcho   bool          `env:"MCHAT_SUPPRESS_ECHO,default=false"`
	NotifyQueue    int           `env:"MCHAT_NOTIFY_QUEUE,default=8"`
	NotifyInterval time.Duration `env:"MCHAT_NOTIFY_INTERVAL,default=250ms"`
	Bell           bool          `env:"MCHAT_BELL,default=true"`
	LogLevel       string        `env:"LOG_LEVEL,default=INFO"`
	MetricsAddr    string        `env:"METRICS_ADDR"`
}

// Load reads an optional .env file from the working directory, then the
// process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnviron()
}

func FromEnviron() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := netutil.ParseMulticastGroup(c.Group); err != nil {
		return fmt.Errorf("%w: group: %v", ErrInvalidConfig, err)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if err := netutil.ValidatePort(uint16(c.Port)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.TTL < 0 || c.TTL > 255 {
		return fmt.Errorf("%w: ttl %d out of range", ErrInvalidConfig, c.TTL)
	}
	if c.NotifyQueue <= 0 {
		return fmt.Errorf("%w: notify queue must be positive", ErrInvalidConfig)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) Level() logger.Level {
	lvl, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.INFO
	}
	return lvl
}

func (c Config) Channel() multicast.Config {
	return multicast.Config{
		Group:           c.Group,
		Port:            uint16(c.Port),
		Interface:       c.Interface,
		TTL:             c.TTL,
		DisableLoopback: !c.Loopback,
	}
}
