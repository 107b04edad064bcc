package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment overrides. Nested keys are
// separated by a double underscore: LEPOSTIER_SERVER__PORT -> server.port.
const EnvPrefix = "LEPOSTIER_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LEPOSTIER_*) and the platform variables
// set by hosting providers (PORT, DATABASE_URL, MEDIA_ROOT).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := applyPlatformEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps LEPOSTIER_MEDIA__ROOT to media.root.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyPlatformEnv honours the unprefixed variables Render and Docker set.
func applyPlatformEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(strings.TrimPrefix(v, ":"))
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("MEDIA_ROOT"); v != "" {
		cfg.Media.Root = v
	}
	return nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validEnvironments = map[Environment]bool{
	EnvDevelopment: true,
	EnvProduction:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if !validEnvironments[c.Env] {
		return fmt.Errorf("invalid env %q: must be one of development, production", c.Env)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.SessionTTL <= 0 {
		return fmt.Errorf("server.session_ttl must be positive")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Media.Root == "" {
		return fmt.Errorf("media.root is required")
	}
	if !strings.HasPrefix(c.Media.URL, "/") || !strings.HasSuffix(c.Media.URL, "/") {
		return fmt.Errorf("media.url %q must start and end with '/'", c.Media.URL)
	}
	if c.Browse.ResultLimit <= 0 || c.Browse.SearchLimit < c.Browse.ResultLimit {
		return fmt.Errorf("browse.search_limit must be >= browse.result_limit > 0")
	}
	if c.Browse.SlideshowSize < 0 {
		return fmt.Errorf("browse.slideshow_size must be non-negative")
	}
	if c.Browse.SlideInterval <= 0 {
		return fmt.Errorf("browse.slide_interval must be positive")
	}
	if c.FTP.Port < 0 || c.FTP.Port > 65535 {
		return fmt.Errorf("ftp.port %d out of range", c.FTP.Port)
	}
	return nil
}

// FTPAddr returns host:port for the FTP mirror.
func (c *Config) FTPAddr() string {
	port := c.FTP.Port
	if port == 0 {
		port = 21
	}
	return fmt.Sprintf("%s:%d", c.FTP.Host, port)
}
