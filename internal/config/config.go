package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"consultbot/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Approval   ApprovalConfig   `yaml:"approval"`
	Session    SessionConfig    `yaml:"session"`
	Redis      RedisConfig      `yaml:"redis"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name" envconfig:"APP_NAME"`
	Environment string `yaml:"environment" envconfig:"APP_ENV"`
	Version     string `yaml:"version" envconfig:"APP_VERSION"`
}

type TelegramConfig struct {
	BotToken        string  `yaml:"bot_token" envconfig:"MAIN_BOT_TOKEN" validate:"required"`
	AdminID         int64   `yaml:"admin_id" envconfig:"ADMIN_ID"`
	GroupID         int64   `yaml:"group_id" envconfig:"GROUP_ID"`
	SupportUsername string  `yaml:"support_username" envconfig:"SUPPORT_USERNAME"`
	Debug           bool    `yaml:"debug" envconfig:"TELEGRAM_DEBUG"`
	SendRPS         float64 `yaml:"send_rps" validate:"gte=0"`
	SendBurst       int     `yaml:"send_burst" validate:"gte=0"`
	PollTimeout     int     `yaml:"poll_timeout" validate:"gte=0"`
}

type ApprovalConfig struct {
	InviteLink       string `yaml:"invite_link" envconfig:"INVITE_LINK" validate:"omitempty,url"`
	AllowAnyApprover bool   `yaml:"allow_any_approver" envconfig:"ALLOW_ANY_APPROVER"`
}

type SessionConfig struct {
	Backend       string        `yaml:"backend" envconfig:"SESSION_BACKEND" validate:"oneof=memory redis sqlite"`
	TTL           time.Duration `yaml:"ttl" envconfig:"SESSION_TTL" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
}

type RedisConfig struct {
	Address  string `yaml:"address" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" envconfig:"SQLITE_PATH"`
}

type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"OPS_ENABLED"`
	Port    int  `yaml:"port" envconfig:"OPS_PORT" validate:"omitempty,min=1,max=65535"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format   string `yaml:"format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=json console"`
	Output   string `yaml:"output" validate:"omitempty,oneof=stdout stderr file"`
	FilePath string `yaml:"file_path"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages" validate:"gte=0"`
	RateLimitWindow   int `yaml:"rate_limit_window" validate:"gte=0"`
}

// Load reads an optional YAML file, then the optional .env file, then applies
// environment overrides. A missing config file or .env is not an error.
func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Предварительная замена переменных окружения в YAML
		expandedData := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expandedData, &config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}

	return c.validateRules()
}

func translateValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}

func (c *Config) validateRules() error {
	if c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	if c.Session.Backend == BackendRedis && c.Redis.Address == "" {
		return errors.New("redis.address is required for the redis session backend")
	}
	if c.Session.Backend == BackendSQLite && c.SQLite.Path == "" {
		return errors.New("sqlite.path is required for the sqlite session backend")
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return errors.New("logging.output=file requires logging.file_path")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "consultbot"
	}
	if c.Session.Backend == "" {
		if c.Redis.Address != "" {
			c.Session.Backend = BackendRedis
		} else {
			c.Session.Backend = BackendMemory
		}
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = models.DefaultSweepInterval * time.Second
	}
	if c.Monitoring.Enabled && c.Monitoring.Port == 0 {
		c.Monitoring.Port = 9090
	}
	if c.Telegram.SendRPS == 0 {
		c.Telegram.SendRPS = models.DefaultSendRPS
	}
	if c.Telegram.SendBurst == 0 {
		c.Telegram.SendBurst = models.DefaultSendBurst
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}

	// Bot defaults
	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
}

// RateLimitWindow returns the inbound rate-limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.Bot.RateLimitWindow) * time.Second
}

// SupportURL returns the t.me link of the support contact, or "" when unset.
func (c *Config) SupportURL() string {
	handle := strings.TrimPrefix(strings.TrimSpace(c.Telegram.SupportUsername), "@")
	if handle == "" {
		return ""
	}
	return "https://t.me/" + handle
}
