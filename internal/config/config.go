package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// AppConfig holds every runtime knob. Values come from an optional YAML file
// (GRIDMATCH_CONFIG) overridden by environment variables, so a container can
// ship a baseline file and tweak single values per deployment.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	WSAddr     string `yaml:"ws_addr"`
	AdminAddr  string `yaml:"admin_addr"`

	// Frame encoding on the TCP listener: "utf8" or "utf16le". The original
	// client sends UTF-16LE text frames.
	FrameEncoding string `yaml:"frame_encoding"`

	DataDir      string `yaml:"data_dir"`
	AccountsFile string `yaml:"accounts_file"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:    ":5491",
		FrameEncoding: "utf8",
		DataDir:       "data",
		IdleTimeout:   30 * time.Minute,
	}

	if path := strings.TrimSpace(os.Getenv("GRIDMATCH_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("ADMIN_ADDR")); v != "" {
		cfg.AdminAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("FRAME_ENCODING")); v != "" {
		cfg.FrameEncoding = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ACCOUNTS_FILE")); v != "" {
		cfg.AccountsFile = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("IDLE_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.IdleTimeout = time.Duration(n) * time.Second
		}
	}

	if cfg.FrameEncoding != "utf8" && cfg.FrameEncoding != "utf16le" {
		return nil, fmt.Errorf("unsupported frame encoding %q", cfg.FrameEncoding)
	}
	if cfg.AccountsFile == "" {
		cfg.AccountsFile = cfg.DataDir + string(os.PathSeparator) + "accounts.txt"
	}

	return cfg, nil
}
