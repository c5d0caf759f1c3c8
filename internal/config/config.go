// Package config loads application settings and resolves the credentials of
// the remote backend.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	dataDirName = ".promptvault"
	envPrefix   = "PROMPTVAULT"
)

// Backend names
const (
	BackendSQLite   = "sqlite"
	BackendRemote   = "remote"
	BackendPostgres = "postgres"
)

// Settings is the resolved application configuration
type Settings struct {
	DataDir      string         `mapstructure:"data_dir"`
	Backend      string         `mapstructure:"backend"`
	DatabasePath string         `mapstructure:"database_path"`
	DatabaseURL  string         `mapstructure:"database_url"`
	Log          LogSettings    `mapstructure:"log"`
	Server       ServerSettings `mapstructure:"server"`
	Remote       RemoteSettings `mapstructure:"remote"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerSettings struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// Token is the bearer token /v1 requests must carry. Empty means
	// serve generates one per session.
	Token string `mapstructure:"token"`
}

// Addr returns host:port
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RemoteSettings struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	ConnectAttempts uint          `mapstructure:"connect_attempts"`
}

// DefaultDataDir returns ~/.promptvault
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dataDirName), nil
}

// Load reads settings from defaults, an optional config.yaml, .env and
// PROMPTVAULT_* environment variables, in increasing precedence.
func Load() (*Settings, error) {
	return LoadWithDefaults(nil, nil)
}

// LoadWithOverrides is Load with explicit values (command-line flags, keyed
// like "data_dir" or "log.level") taking precedence over every other source.
// Empty string values are ignored.
func LoadWithOverrides(overrides map[string]any) (*Settings, error) {
	return LoadWithDefaults(nil, overrides)
}

// LoadWithDefaults is LoadWithOverrides with some built-in defaults replaced.
// Every other source still takes precedence over defaults.
func LoadWithDefaults(defaults, overrides map[string]any) (*Settings, error) {
	// .env is optional
	_ = godotenv.Load(".env")

	v := viper.New()
	dataDir, err := DefaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_dir", dataDir)
	for key, val := range overrides {
		if str, ok := val.(string); ok && str == "" {
			continue
		}
		v.Set(key, val)
	}
	if dir := v.GetString("data_dir"); dir != "" {
		dataDir = dir
	}
	setDefaults(v)
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := s.normalize(); err != nil {
		return nil, err
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("database_path", "")
	v.SetDefault("database_url", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.token", "")
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.connect_attempts", 3)
}

func (s *Settings) normalize() error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	switch s.Backend {
	case BackendSQLite, BackendRemote, BackendPostgres:
	default:
		return fmt.Errorf("unknown backend %q (expected sqlite, remote or postgres)", s.Backend)
	}
	if s.Backend == BackendPostgres && s.DatabaseURL == "" {
		return fmt.Errorf("backend postgres requires database_url (or %s_DATABASE_URL)", envPrefix)
	}
	if s.DatabasePath == "" {
		s.DatabasePath = filepath.Join(s.DataDir, "prompts.db")
	}
	if s.Remote.ConnectAttempts == 0 {
		s.Remote.ConnectAttempts = 1
	}
	// cors_origins may arrive from the environment as one comma separated value
	if len(s.Server.CORSOrigins) == 1 && strings.Contains(s.Server.CORSOrigins[0], ",") {
		s.Server.CORSOrigins = splitList(s.Server.CORSOrigins[0])
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
