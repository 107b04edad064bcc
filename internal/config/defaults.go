package config

import "time"

// DefaultFTPFolders are the remote folders mirrored by sync-ftp.
var DefaultFTPFolders = []string{"Vignette", "Grande", "Dos", "Zoom", "animated_cp"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			SessionTTL:     14 * 24 * time.Hour,
		},
		Database: DatabaseConfig{
			URL: "data/lepostier.db",
		},
		Media: MediaConfig{
			Root: "media",
			URL:  "/media/",
		},
		Browse: BrowseConfig{
			SearchLimit:   200,
			ResultLimit:   50,
			SlideshowSize: 20,
			SlideInterval: 3 * time.Second,
		},
		FTP: FTPConfig{
			Port:    21,
			Path:    "/collection_cp/cartes",
			Folders: append([]string(nil), DefaultFTPFolders...),
		},
		MemberCardURL: "/static/images/Carte_Membre_4.jpeg",
	}
}
