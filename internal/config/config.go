package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "USERHUB"

type Config struct {
	App      AppConfig      `mapstructure:"application"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Docs     DocsConfig     `mapstructure:"docs"`
	Security SecurityConfig `mapstructure:"security"`
}

type AppConfig struct {
	Name      string `mapstructure:"app_name"`
	Version   string `mapstructure:"version"`
	Env       string `mapstructure:"env"`
	APIPrefix string `mapstructure:"api_prefix"`
}

type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type DatabaseConfig struct {
	Type        string `mapstructure:"db_type"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Name        string `mapstructure:"database"`
	SSLMode     string `mapstructure:"sslmode"`
	SQLiteFile  string `mapstructure:"sqlite_file"`
	MaxConns    int32  `mapstructure:"max_conns"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// PostgresURL renders the pgx connection string.
func (d DatabaseConfig) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}

	return u.String()
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
	ToFile    bool   `mapstructure:"to_file"`
	Dir       string `mapstructure:"dir"`

	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig bounds the size and retention of app.log and the audit file.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type AuditConfig struct {
	Sink          string `mapstructure:"sink"`
	File          string `mapstructure:"file"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisStream   string `mapstructure:"redis_stream"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type DocsConfig struct {
	ExportPath string `mapstructure:"export_path"`
}

type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

var defaults = map[string]any{
	"application.app_name":   "UserHub API",
	"application.version":    "1.0.0",
	"application.env":        "dev",
	"application.api_prefix": "/api/v1",

	"server.host":           "0.0.0.0",
	"server.port":           8000,
	"server.shutdown_grace": "10s",

	"database.db_type":      "sqlite",
	"database.host":         "127.0.0.1",
	"database.port":         5432,
	"database.username":     "userhub",
	"database.password":     "userhub",
	"database.database":     "userhub",
	"database.sslmode":      "disable",
	"database.sqlite_file":  "userhub.sqlite",
	"database.max_conns":    10,
	"database.auto_migrate": true,

	"cors.origins": []string{"*"},

	"logging.level":      "info",
	"logging.format":     "json",
	"logging.add_source": false,
	"logging.to_file":    false,
	"logging.dir":        "logs",

	"logging.rotation.max_size_mb":  10,
	"logging.rotation.max_backups":  5,
	"logging.rotation.max_age_days": 30,
	"logging.rotation.compress":     false,

	"audit.sink":           "file",
	"audit.file":           "logs/audit.log",
	"audit.redis_addr":     "127.0.0.1:6379",
	"audit.redis_password": "",
	"audit.redis_db":       0,
	"audit.redis_stream":   "userhub:audit",

	"tracing.enabled":      false,
	"tracing.endpoint":     "localhost:4317",
	"tracing.insecure":     true,
	"tracing.sample_ratio": 1.0,

	"docs.export_path": "",

	"security.bcrypt_cost": 10,
}

// Load builds the configuration from defaults, an optional TOML file and the
// environment (USERHUB_<SECTION>_<KEY>), in increasing precedence. A .env file
// in the working directory is loaded first without overriding existing vars.
func Load(configFile string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if configFile != "" {
		raw, err := os.ReadFile(configFile)

		switch {
		case err == nil:
			v.SetConfigType("toml")
			if err := v.ReadConfig(bytes.NewReader(ExpandPlaceholders(raw))); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", configFile, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// the file is optional
		default:
			return Config{}, fmt.Errorf("read %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	cfg.Audit.Sink = strings.ToLower(strings.TrimSpace(cfg.Audit.Sink))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database type %q (supported: postgres, sqlite)", c.Database.Type)
	}

	switch c.Audit.Sink {
	case "none", "file", "redis":
	default:
		return fmt.Errorf("unsupported audit sink %q (supported: none, file, redis)", c.Audit.Sink)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	// bcrypt accepts 4..31
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31, got %d", c.Security.BcryptCost)
	}

	if r := c.Logging.Rotation; r.MaxSizeMB <= 0 || r.MaxBackups < 0 || r.MaxAgeDays < 0 {
		return fmt.Errorf("invalid log rotation: max_size_mb=%d max_backups=%d max_age_days=%d", r.MaxSizeMB, r.MaxBackups, r.MaxAgeDays)
	}

	if !strings.HasPrefix(c.App.APIPrefix, "/") {
		return fmt.Errorf("api_prefix must start with '/', got %q", c.App.APIPrefix)
	}

	return nil
}

func (c Config) IsDev() bool {
	return c.App.Env == "dev"
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

var tomlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// ExpandPlaceholders replaces ${VAR} and ${VAR:-fallback} with environment values.
// An unset variable without a fallback expands to the empty string. Environment
// values are escaped for a TOML basic string, so placeholders belong inside
// double quotes. Fallbacks are written by hand and are inserted as is.
func ExpandPlaceholders(raw []byte) []byte {
	return placeholder.ReplaceAllFunc(raw, func(m []byte) []byte {
		parts := placeholder.FindSubmatch(m)

		if v, ok := os.LookupEnv(string(parts[1])); ok && v != "" {
			return []byte(tomlEscaper.Replace(v))
		}

		return parts[2]
	})
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
