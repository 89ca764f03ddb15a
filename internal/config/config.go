package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL      string `yaml:"server_url" validate:"required,url"`
	ChatServiceURL string `yaml:"chat_service_url" validate:"omitempty,url"`
	AuthFile       string `yaml:"auth_file" validate:"required"`
	ExportDir      string `yaml:"export_dir"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" validate:"gte=0"`
}

var validate = validator.New()

// Load reads the YAML config at path, applies defaults and environment
// overrides, and validates the result. A missing file is fine as long
// as the environment supplies a server URL.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus env only.
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if url := os.Getenv("MEMCARD_SERVER_URL"); url != "" {
		cfg.ServerURL = url
	}
	if url := os.Getenv("MEMCARD_CHAT_URL"); url != "" {
		cfg.ChatServiceURL = url
	}

	if cfg.AuthFile == "" {
		cfg.AuthFile = defaultAuthFile()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "."
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 50 << 20
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func defaultAuthFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memcard-auth.json"
	}
	return filepath.Join(home, ".memcard", "auth.json")
}
