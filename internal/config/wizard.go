package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// DefaultPath is where init writes the configuration.
const DefaultPath = "lepostier.yml"

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to Le Postier! Let's configure the catalog.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Environment.
	envPrompt := promptui.Select{
		Label: "Select environment",
		Items: []string{string(EnvDevelopment), string(EnvProduction)},
	}
	_, envStr, err := envPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("environment selection: %w", err)
	}
	cfg.Env = Environment(envStr)

	// 2. Port.
	portPrompt := promptui.Prompt{
		Label:    "HTTP port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)
	cfg.Server.SecureCookies = cfg.Env == EnvProduction

	// 3. Database.
	dbPrompt := promptui.Prompt{
		Label:   "Database (SQLite path or postgres:// URL)",
		Default: cfg.Database.URL,
	}
	if cfg.Database.URL, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	// 4. Media root.
	mediaPrompt := promptui.Prompt{
		Label:   "Media root directory",
		Default: cfg.Media.Root,
	}
	if cfg.Media.Root, err = mediaPrompt.Run(); err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	}

	// 5. FTP mirror (optional).
	ftpPrompt := promptui.Prompt{
		Label:   "FTP host for media sync (leave blank to skip)",
		Default: "",
	}
	host, err := ftpPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ftp host: %w", err)
	}
	cfg.FTP.Host = strings.TrimSpace(host)
	if cfg.FTP.Host != "" {
		userPrompt := promptui.Prompt{Label: "FTP user"}
		if cfg.FTP.User, err = userPrompt.Run(); err != nil {
			return nil, fmt.Errorf("ftp user: %w", err)
		}
		fmt.Printf("Note: set %sFTP__PASSWORD in your environment rather than storing it.\n", EnvPrefix)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(input string) error {
	n, err := strconv.Atoi(input)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("port out of range")
	}
	return nil
}

// SplitAndTrim splits a comma-separated string and trims whitespace,
// dropping empty tokens.
func SplitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
