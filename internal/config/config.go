package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PublicBaseURL  string        `yaml:"public_base_url"`
	InitRateLimit  int           `yaml:"init_rate_limit"` // payment initiations per client IP per minute; needs redis
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // host:port or redis:// URL; empty disables locking and caching
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type CinetPayConfig struct {
	APIKey    string        `yaml:"api_key"`
	SiteID    string        `yaml:"site_id"`
	SecretKey string        `yaml:"secret_key"` // webhook x-token HMAC key; empty skips the check
	BaseURL   string        `yaml:"base_url"`
	Currency  string        `yaml:"currency"`
	NotifyURL string        `yaml:"notify_url"`
	ReturnURL string        `yaml:"return_url"`
	Channels  string        `yaml:"channels"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PaymentConfig struct {
	CinetPay CinetPayConfig `yaml:"cinetpay"`
}

type RouterConfig struct {
	Address  string        `yaml:"address"` // host:port of the RouterOS API
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	UseTLS   bool          `yaml:"use_tls"`
}

type MailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	Timeout  time.Duration `yaml:"timeout"`
}

type TelegramConfig struct {
	Token          string `yaml:"token"`
	OperatorChatID int64  `yaml:"operator_chat_id"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TTL       time.Duration `yaml:"ttl"`
}

type ProvisioningConfig struct {
	CodeLength      int `yaml:"code_length"`
	MaxCodeAttempts int `yaml:"max_code_attempts"`
}

type ReconcilerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
	StuckAfter time.Duration `yaml:"stuck_after"`
	MaxAge     time.Duration `yaml:"max_age"` // open transactions older than this are no longer swept
}

type WorkerConfig struct {
	Count int `yaml:"count"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Payment      PaymentConfig      `yaml:"payment"`
	Router       RouterConfig       `yaml:"router"`
	Mail         MailConfig         `yaml:"mail"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Auth         AuthConfig         `yaml:"auth"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Reconciler   ReconcilerConfig   `yaml:"reconciler"`
	Worker       WorkerConfig       `yaml:"worker"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, expands ${VAR} references from the
// environment (after an optional .env overlay), applies defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw YAML, expanding environment references first.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Server.InitRateLimit <= 0 {
		c.Server.InitRateLimit = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	c.Redis.LockTTL = normalizeTTL(c.Redis.LockTTL, 2*time.Minute)
	c.Redis.CacheTTL = normalizeTTL(c.Redis.CacheTTL, time.Hour)

	cp := &c.Payment.CinetPay
	if cp.BaseURL == "" {
		cp.BaseURL = "https://api-checkout.cinetpay.com"
	}
	if cp.Currency == "" {
		cp.Currency = "XOF"
	}
	if cp.Channels == "" {
		cp.Channels = "ALL"
	}
	cp.Timeout = normalizeTTL(cp.Timeout, 15*time.Second)
	if cp.NotifyURL == "" && c.Server.PublicBaseURL != "" {
		cp.NotifyURL = c.Server.PublicBaseURL + "/payments/notify"
	}
	if cp.ReturnURL == "" {
		cp.ReturnURL = cp.NotifyURL
	}

	c.Router.Timeout = normalizeTTL(c.Router.Timeout, 10*time.Second)
	if c.Mail.Port <= 0 {
		c.Mail.Port = 587
	}
	c.Mail.Timeout = normalizeTTL(c.Mail.Timeout, 20*time.Second)
	c.Auth.TTL = normalizeTTL(c.Auth.TTL, 12*time.Hour)

	if c.Provisioning.CodeLength <= 0 {
		c.Provisioning.CodeLength = 8
	}
	if c.Provisioning.MaxCodeAttempts <= 0 {
		c.Provisioning.MaxCodeAttempts = 3
	}
	c.Reconciler.Interval = normalizeTTL(c.Reconciler.Interval, time.Minute)
	c.Reconciler.StaleAfter = normalizeTTL(c.Reconciler.StaleAfter, 10*time.Minute)
	c.Reconciler.StuckAfter = normalizeTTL(c.Reconciler.StuckAfter, 15*time.Minute)
	c.Reconciler.MaxAge = normalizeTTL(c.Reconciler.MaxAge, 72*time.Hour)
	if c.Worker.Count <= 0 {
		c.Worker.Count = 4
	}
}

// Validate checks the settings without which the service cannot run.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Payment.CinetPay.APIKey == "" || c.Payment.CinetPay.SiteID == "" {
		return errors.New("payment.cinetpay.api_key and site_id are required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Provisioning.CodeLength < 6 {
		return errors.New("provisioning.code_length must be at least 6")
	}
	return nil
}

func normalizeTTL(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
