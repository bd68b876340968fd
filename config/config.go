// Package config provides typed configuration loading for the vitrine server.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure for the vitrine server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Chat     ChatConfig     `yaml:"chat"`
}

// ServerConfig contains HTTP/WebSocket server settings.
type ServerConfig struct {
	Listen           string   `yaml:"listen"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	UseXForwardedFor bool     `yaml:"use_x_forwarded_for"`
	ReadTimeout      int      `yaml:"read_timeout"`
	WriteTimeout     int      `yaml:"write_timeout"`
	IdleTimeout      int      `yaml:"idle_timeout"`
	ShutdownTimeout  int      `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Name            string `yaml:"name"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"`
	SQLTimeout      int    `yaml:"sql_timeout"`
}

// DSN returns a PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.SQLTimeout,
	)
}

// ChatConfig contains settings for the support chat room.
type ChatConfig struct {
	// Maximum message length in grapheme clusters.
	MaxMessageLength int `yaml:"max_message_length"`
	// Messages allowed per window per session.
	RateLimit      int `yaml:"rate_limit"`
	RateWindowSecs int `yaml:"rate_window_secs"`
	// System message templates; each must contain exactly one %s for the name.
	JoinMessage  string `yaml:"join_message"`
	LeaveMessage string `yaml:"leave_message"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, for running
// without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// expandEnvVars expands ${VAR} and ${VAR:default} patterns in the config.
func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		envVar := parts[1]
		defaultVal := ""
		if len(parts) > 2 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(envVar); val != "" {
			return val
		}
		return defaultVal
	})
}

// applyDefaults sets default values for unset fields.
func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Listen == "" {
		c.Server.Listen = ":3000"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10
	}

	// Database defaults
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Name == "" {
		c.Database.Name = "vitrine"
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 20
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 60
	}
	if c.Database.SQLTimeout == 0 {
		c.Database.SQLTimeout = 10
	}

	// Chat defaults
	if c.Chat.MaxMessageLength == 0 {
		c.Chat.MaxMessageLength = 1000
	}
	if c.Chat.RateLimit == 0 {
		c.Chat.RateLimit = 10
	}
	if c.Chat.RateWindowSecs == 0 {
		c.Chat.RateWindowSecs = 10
	}
	if c.Chat.JoinMessage == "" {
		c.Chat.JoinMessage = "%s entrou no chat"
	}
	if c.Chat.LeaveMessage == "" {
		c.Chat.LeaveMessage = "%s saiu do chat"
	}
}

// validate checks that fields are well-formed.
func (c *Config) validate() error {
	if strings.Count(c.Chat.JoinMessage, "%s") != 1 {
		return fmt.Errorf("chat.join_message must contain exactly one %%s")
	}
	if strings.Count(c.Chat.LeaveMessage, "%s") != 1 {
		return fmt.Errorf("chat.leave_message must contain exactly one %%s")
	}
	if c.Chat.RateLimit < 0 || c.Chat.RateWindowSecs < 0 {
		return fmt.Errorf("chat rate limit settings must be non-negative")
	}
	return nil
}
