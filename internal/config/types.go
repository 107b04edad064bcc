package config

import "time"

// Environment names the deployment flavour. Production skips .env loading
// and marks session cookies secure.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config is the top-level lepostier configuration, corresponding to lepostier.yml.
type Config struct {
	Env           Environment    `yaml:"env" koanf:"env"`
	Server        ServerConfig   `yaml:"server" koanf:"server"`
	Database      DatabaseConfig `yaml:"database" koanf:"database"`
	Media         MediaConfig    `yaml:"media" koanf:"media"`
	Browse        BrowseConfig   `yaml:"browse" koanf:"browse"`
	FTP           FTPConfig      `yaml:"ftp" koanf:"ftp"`
	Admin         AdminConfig    `yaml:"admin" koanf:"admin"`
	MemberCardURL string         `yaml:"member_card_url" koanf:"member_card_url"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int           `yaml:"port" koanf:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	SessionTTL     time.Duration `yaml:"session_ttl" koanf:"session_ttl"`
	SecureCookies  bool          `yaml:"secure_cookies" koanf:"secure_cookies"`
}

// DatabaseConfig selects the store. A postgres:// URL uses Postgres,
// anything else is a SQLite file path.
type DatabaseConfig struct {
	URL string `yaml:"url" koanf:"url"`
}

// MediaConfig locates the postcard images on disk and on the web.
type MediaConfig struct {
	Root string `yaml:"root" koanf:"root"`
	URL  string `yaml:"url" koanf:"url"`
}

// BrowseConfig bounds the browse page and its cinema mode.
type BrowseConfig struct {
	SearchLimit   int           `yaml:"search_limit" koanf:"search_limit"`
	ResultLimit   int           `yaml:"result_limit" koanf:"result_limit"`
	SlideshowSize int           `yaml:"slideshow_size" koanf:"slideshow_size"`
	SlideInterval time.Duration `yaml:"slide_interval" koanf:"slide_interval"`
}

// FTPConfig describes the remote media mirror (OVH hosting).
type FTPConfig struct {
	Host     string   `yaml:"host" koanf:"host"`
	Port     int      `yaml:"port" koanf:"port"`
	User     string   `yaml:"user" koanf:"user"`
	Password string   `yaml:"password" koanf:"password"`
	Path     string   `yaml:"path" koanf:"path"`
	Folders  []string `yaml:"folders" koanf:"folders"`
}

// AdminConfig seeds the bootstrap administrator.
type AdminConfig struct {
	Username string `yaml:"username" koanf:"username"`
	Email    string `yaml:"email" koanf:"email"`
	Password string `yaml:"password" koanf:"password"`
}
