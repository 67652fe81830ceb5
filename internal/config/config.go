package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	StoreDriver  string `mapstructure:"store_driver" yaml:"store_driver"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB      int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisKey     string `mapstructure:"redis_key" yaml:"redis_key"`

	IdentityPoolSize    int `mapstructure:"identity_pool_size" yaml:"identity_pool_size"`
	IdentityFallbackMax int `mapstructure:"identity_fallback_max" yaml:"identity_fallback_max"`

	AssistantDelay   time.Duration `mapstructure:"assistant_delay" yaml:"assistant_delay"`
	AssistantTrigger string        `mapstructure:"assistant_trigger" yaml:"assistant_trigger"`

	UploadDir      string `mapstructure:"upload_dir" yaml:"upload_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`

	MaxMessagesPerMinute int      `mapstructure:"max_messages_per_minute" yaml:"max_messages_per_minute"`
	AllowedOrigins       []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                ":3000",
		ReadHeaderTimeout:   5 * time.Second,
		ShutdownTimeout:     5 * time.Second,
		LogLevel:            "info",
		LogFormat:           "console",
		StoreDriver:         StoreSQLite,
		DatabasePath:        "studychat.db",
		RedisAddr:           "127.0.0.1:6379",
		RedisKey:            "studychat:messages",
		IdentityPoolSize:    100,
		IdentityFallbackMax: 1000,
		AssistantDelay:      1500 * time.Millisecond,
		AssistantTrigger:    "@ai",
		UploadDir:           "uploads",
		MaxUploadBytes:      10 << 20,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.StoreDriver != "" {
		c.StoreDriver = other.StoreDriver
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.RedisAddr != "" {
		c.RedisAddr = other.RedisAddr
	}
	if other.UploadDir != "" {
		c.UploadDir = other.UploadDir
	}
	if other.AssistantDelay != 0 {
		c.AssistantDelay = other.AssistantDelay
	}
}
