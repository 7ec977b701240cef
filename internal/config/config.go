package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "PROPOSALLENS_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	snapshotURLEnv    = "SNAPSHOT_ENDPOINT"
	snapshotSpaceEnv  = "SNAPSHOT_SPACE"
	cacheDriverEnv    = "CACHE_DRIVER"
	cacheDSNEnv       = "CACHE_DSN"
	redisURLEnv       = "REDIS_URL"
	metricsAddrEnv    = "METRICS_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Cache drivers understood by storage.Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Snapshot      SnapshotConfig     `yaml:"snapshot"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Cache         CacheConfig        `yaml:"cache"`
	Images        ImageConfig        `yaml:"images"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and handler format ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SnapshotConfig points at the governance GraphQL hub.
type SnapshotConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Space       string `yaml:"space"`
	First       int    `yaml:"first"`
	VoteBaseURL string `yaml:"voteBaseUrl"`
}

// ChatGPTConfig defines how to contact the chat-completions API.
type ChatGPTConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Instruction string        `yaml:"instruction"`
	Fallback    string        `yaml:"fallback"`
	Timeout     time.Duration `yaml:"timeout"`
}

// CacheConfig selects and addresses the durable store.
type CacheConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	DSN      string `yaml:"dsn"`
	RedisURL string `yaml:"redisUrl"`
	Prefix   string `yaml:"prefix"`
}

// ImageConfig controls thumbnail resolution.
type ImageConfig struct {
	Gateway     string `yaml:"gateway"`
	Placeholder string `yaml:"placeholder"`
}

// SchedulerConfig defines when watch mode re-activates the pipeline.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// Load reads YAML configuration from path (or $PROPOSALLENS_CONFIG when path is
// empty) and applies environment overrides. A missing or broken file falls back
// to defaults.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// ReadFile parses a YAML config file without merging defaults.
func ReadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(snapshotURLEnv); v != "" {
		c.Snapshot.Endpoint = v
	}

	if v := os.Getenv(snapshotSpaceEnv); v != "" {
		c.Snapshot.Space = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(cacheDriverEnv); v != "" {
		c.Cache.Driver = v
	}

	if v := os.Getenv(cacheDSNEnv); v != "" {
		c.Cache.DSN = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Cache.RedisURL = v
	}

	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Snapshot.Endpoint != "" {
		base.Snapshot.Endpoint = override.Snapshot.Endpoint
	}
	if override.Snapshot.Space != "" {
		base.Snapshot.Space = override.Snapshot.Space
	}
	if override.Snapshot.First > 0 {
		base.Snapshot.First = override.Snapshot.First
	}
	if override.Snapshot.VoteBaseURL != "" {
		base.Snapshot.VoteBaseURL = override.Snapshot.VoteBaseURL
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.Instruction != "" {
		base.ChatGPT.Instruction = override.ChatGPT.Instruction
	}
	if override.ChatGPT.Fallback != "" {
		base.ChatGPT.Fallback = override.ChatGPT.Fallback
	}
	if override.ChatGPT.Timeout > 0 {
		base.ChatGPT.Timeout = override.ChatGPT.Timeout
	}

	if override.Cache.Driver != "" {
		base.Cache.Driver = override.Cache.Driver
	}
	if override.Cache.Path != "" {
		base.Cache.Path = override.Cache.Path
	}
	if override.Cache.DSN != "" {
		base.Cache.DSN = override.Cache.DSN
	}
	if override.Cache.RedisURL != "" {
		base.Cache.RedisURL = override.Cache.RedisURL
	}
	if override.Cache.Prefix != "" {
		base.Cache.Prefix = override.Cache.Prefix
	}

	if override.Images.Gateway != "" {
		base.Images.Gateway = override.Images.Gateway
	}
	if override.Images.Placeholder != "" {
		base.Images.Placeholder = override.Images.Placeholder
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

// DefaultCachePath is the SQLite file under the XDG cache home.
func DefaultCachePath() string {
	return filepath.Join(xdg.CacheHome, "proposallens", "cache.db")
}

// String renders the non-secret parts of the config for debug logs.
func (c Config) String() string {
	return "snapshot=" + c.Snapshot.Endpoint +
		" space=" + c.Snapshot.Space +
		" first=" + strconv.Itoa(c.Snapshot.First) +
		" model=" + c.ChatGPT.Model +
		" cache=" + c.Cache.Driver
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Snapshot: SnapshotConfig{
			Endpoint:    "https://hub.snapshot.org/graphql",
			Space:       "skatehive.eth",
			First:       20,
			VoteBaseURL: "https://snapshot.org/#/",
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-3.5-turbo",
			APIKey:      "",
			Instruction: "Summarize the following proposal in 3 sentences: ",
			Fallback:    "No summary available.",
			Timeout:     60 * time.Second,
		},
		Cache: CacheConfig{
			Driver: DriverSQLite,
			Path:   DefaultCachePath(),
			Prefix: "proposallens:",
		},
		Images: ImageConfig{
			Gateway:     "https://snapshot.4everland.link/ipfs/",
			Placeholder: "/assets/skatehive-logo.png",
		},
		Scheduler: SchedulerConfig{CronExpression: "*/30 * * * *", Timezone: defaultTimezone, location: tz},
	}
}
