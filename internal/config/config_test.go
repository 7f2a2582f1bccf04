package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("TEST_GROUP", "-100200300")
	path := writeConfig(t, `
app:
  name: consultbot
  environment: test
telegram:
  bot_token: "123:abc"
  admin_id: 42
  group_id: ${TEST_GROUP}
  support_username: "@KeyturSupport_bot"
approval:
  invite_link: "https://t.me/+invite"
session:
  backend: memory
  ttl: 24h
logging:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, int64(42), cfg.Telegram.AdminID)
	assert.Equal(t, int64(-100200300), cfg.Telegram.GroupID)
	assert.Equal(t, "https://t.me/+invite", cfg.Approval.InviteLink)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://t.me/KeyturSupport_bot", cfg.SupportURL())
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "from-file"
  admin_id: 1
`)
	t.Setenv("MAIN_BOT_TOKEN", "from-env")
	t.Setenv("ADMIN_ID", "555")
	t.Setenv("GROUP_ID", "-1001")
	t.Setenv("SUPPORT_USERNAME", "helpdesk")
	t.Setenv("SESSION_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, int64(555), cfg.Telegram.AdminID)
	assert.Equal(t, int64(-1001), cfg.Telegram.GroupID)
	assert.Equal(t, "https://t.me/helpdesk", cfg.SupportURL())
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
}

func TestLoad_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("MAIN_BOT_TOKEN", "env-only")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-only", cfg.Telegram.BotToken)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("MAIN_BOT_TOKEN", "")
	path := writeConfig(t, "telegram:\n  admin_id: 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BotToken is required")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "telegram: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, "consultbot", cfg.App.Name)
	assert.Equal(t, BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, time.Duration(0), cfg.Session.TTL)
	assert.Equal(t, float64(25), cfg.Telegram.SendRPS)
	assert.Equal(t, 5, cfg.Telegram.SendBurst)
	assert.Equal(t, 60, cfg.Telegram.PollTimeout)
	assert.Equal(t, 20, cfg.Bot.RateLimitMessages)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow())

	t.Run("RedisBackendWhenAddressSet", func(t *testing.T) {
		cfg := &Config{Redis: RedisConfig{Address: "localhost:6379"}}
		cfg.applyDefaults()
		assert.Equal(t, BackendRedis, cfg.Session.Backend)
	})

	t.Run("MonitoringPort", func(t *testing.T) {
		cfg := &Config{Monitoring: MonitoringConfig{Enabled: true}}
		cfg.applyDefaults()
		assert.Equal(t, 9090, cfg.Monitoring.Port)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{Telegram: TelegramConfig{BotToken: "t"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"PlaceholderToken", func(c *Config) { c.Telegram.BotToken = "YOUR_BOT_TOKEN_HERE" }, "token is required"},
		{"UnknownBackend", func(c *Config) { c.Session.Backend = "etcd" }, "must be one of"},
		{"RedisWithoutAddress", func(c *Config) { c.Session.Backend = BackendRedis }, "redis.address"},
		{"SQLiteWithoutPath", func(c *Config) { c.Session.Backend = BackendSQLite }, "sqlite.path"},
		{"BadInviteLink", func(c *Config) { c.Approval.InviteLink = "not a url" }, "InviteLink"},
		{"FileOutputWithoutPath", func(c *Config) { c.Logging.Output = "file" }, "file_path"},
		{"BadPort", func(c *Config) { c.Monitoring.Port = 70000 }, "Port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSupportURL(t *testing.T) {
	assert.Equal(t, "", (&Config{}).SupportURL())
	assert.Equal(t, "https://t.me/abc", (&Config{Telegram: TelegramConfig{SupportUsername: " @abc "}}).SupportURL())
}
