// Package config loads server settings from defaults, an optional config
// file, and the environment (a .env file is read by the binary at startup).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Database  Database
	Log       Log
	Feed      Feed
	Admin     Admin
	Analytics Analytics
	CORS      CORS
}

type Server struct {
	Port            string
	Mode            string // gin mode: debug|release|test
	ShutdownTimeout time.Duration
}

type Database struct {
	Path string
}

type Log struct {
	Level  string
	Format string
	File   string
}

type Feed struct {
	Endpoint   string
	RSSURL     string
	ProfileURL string
	Timeout    time.Duration
}

type Admin struct {
	Username string
	Password string
}

type Analytics struct {
	Enabled         bool
	Retention       time.Duration
	CleanupInterval time.Duration
}

type CORS struct {
	AllowedOrigins []string
}

// Default development credentials; a warning is logged when they are in use.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.path", "data/portfolio.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("feed.endpoint", "https://api.rss2json.com/v1/api.json")
	v.SetDefault("feed.rss_url", "https://medium.com/feed/@ganotra.vox")
	v.SetDefault("feed.profile_url", "https://medium.com/@ganotra.vox")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("admin.username", DefaultAdminUsername)
	v.SetDefault("admin.password", DefaultAdminPassword)
	v.SetDefault("analytics.enabled", true)
	v.SetDefault("analytics.retention", 365*24*time.Hour)
	v.SetDefault("analytics.cleanup_interval", 24*time.Hour)
	v.SetDefault("cors.allowed_origins", []string{})
}

// New returns a viper instance with defaults and environment bindings.
// PORTFOLIO_<SECTION>_<KEY> overrides any key; the bare PORT, GIN_MODE,
// ADMIN_USERNAME and ADMIN_PASSWORD variables are honoured too.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("portfolio")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "PORTFOLIO_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.mode", "PORTFOLIO_SERVER_MODE", "GIN_MODE")
	_ = v.BindEnv("admin.username", "PORTFOLIO_ADMIN_USERNAME", "ADMIN_USERNAME")
	_ = v.BindEnv("admin.password", "PORTFOLIO_ADMIN_PASSWORD", "ADMIN_PASSWORD")
	return v
}

// Load reads file (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{
		Server: Server{
			Port:            v.GetString("server.port"),
			Mode:            v.GetString("server.mode"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: Database{Path: v.GetString("database.path")},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			File:   v.GetString("log.file"),
		},
		Feed: Feed{
			Endpoint:   v.GetString("feed.endpoint"),
			RSSURL:     v.GetString("feed.rss_url"),
			ProfileURL: v.GetString("feed.profile_url"),
			Timeout:    v.GetDuration("feed.timeout"),
		},
		Admin: Admin{
			Username: v.GetString("admin.username"),
			Password: v.GetString("admin.password"),
		},
		Analytics: Analytics{
			Enabled:         v.GetBool("analytics.enabled"),
			Retention:       v.GetDuration("analytics.retention"),
			CleanupInterval: v.GetDuration("analytics.cleanup_interval"),
		},
		CORS: CORS{AllowedOrigins: splitList(v.GetStringSlice("cors.allowed_origins"))},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return fmt.Errorf("config: server.port is required")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("config: database.path is required")
	}
	if c.Feed.Endpoint == "" || c.Feed.RSSURL == "" {
		return fmt.Errorf("config: feed.endpoint and feed.rss_url are required")
	}
	if c.Analytics.Enabled && c.Analytics.CleanupInterval <= 0 {
		return fmt.Errorf("config: analytics.cleanup_interval must be positive")
	}
	return nil
}

// UsingDefaultAdmin reports whether the development credentials are active.
func (c *Config) UsingDefaultAdmin() bool {
	return c.Admin.Username == DefaultAdminUsername || c.Admin.Password == DefaultAdminPassword
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
