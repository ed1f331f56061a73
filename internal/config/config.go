// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PriceTTL time.Duration `yaml:"price_ttl"` // price list expiry
}

type PayPalConfig struct {
	API struct {
		Endpoint  string `yaml:"endpoint"` // NVP endpoint base URL
		UserID    string `yaml:"user_id"`
		Password  string `yaml:"password"`
		Signature string `yaml:"signature"`
	} `yaml:"api"`
	Sandbox          bool          `yaml:"sandbox"`
	CurrencyCode     string        `yaml:"currency_code"`
	RedirectURL      string        `yaml:"redirect_url"` // payer approval base, token appended
	IPN              IPNConfig     `yaml:"ipn"`
	MultipleMandates bool          `yaml:"multiple_mandates"`
	Timeout          time.Duration `yaml:"timeout"`
}

type IPNConfig struct {
	MandateURL string `yaml:"mandate_url"` // notify URL for mandate lifecycle IPNs
	ChargeURL  string `yaml:"charge_url"`  // notify URL for charge IPNs
	VerifyHost string `yaml:"verify_host"` // postback host for _notify-validate
	Verify     bool   `yaml:"verify"`      // postback verification toggle
}

type WalletConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type BeanstalkConfig struct {
	Addr string `yaml:"addr"`
	Tube string `yaml:"tube"`
}

type WorkerConfig struct {
	Count int `yaml:"count"` // IPN dispatch workers
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	PayPal    PayPalConfig    `yaml:"paypal"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Beanstalk BeanstalkConfig `yaml:"beanstalk"`
	Worker    WorkerConfig    `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Runtime.Dev = dev

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Redis.PriceTTL <= 0 {
		cfg.Redis.PriceTTL = 24 * time.Hour
	}
	if cfg.PayPal.CurrencyCode == "" {
		cfg.PayPal.CurrencyCode = "USD"
	}
	if cfg.PayPal.Timeout <= 0 {
		cfg.PayPal.Timeout = 15 * time.Second
	}
	if cfg.Wallet.Timeout <= 0 {
		cfg.Wallet.Timeout = 10 * time.Second
	}
	if cfg.Beanstalk.Tube == "" {
		cfg.Beanstalk.Tube = "wallet"
	}
	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 8
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.PayPal.API.UserID == "" || cfg.PayPal.API.Password == "" || cfg.PayPal.API.Signature == "" {
		return nil, errors.New("paypal.api credentials are required")
	}
	if cfg.PayPal.RedirectURL == "" {
		return nil, errors.New("paypal.redirect_url is required")
	}
	if cfg.Wallet.BaseURL == "" {
		return nil, errors.New("wallet.base_url is required")
	}

	return &cfg, nil
}
