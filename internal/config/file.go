package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"ideaforge/internal/logging"
)

// FileConfig is the process configuration the CLI reads from ideaforge.yaml
// (working directory, then $HOME/.ideaforge.yaml). Environment variables
// override file values.
type FileConfig struct {
	Provider string `yaml:"provider"` // local | gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	CacheURL       string `yaml:"cache_url"` // redis URL; empty means in-memory
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
	LogLevel       string `yaml:"log_level"`

	BookmarkPath string `yaml:"bookmark_path"`
}

// DefaultConfigPaths lists the locations probed by Load, in order.
func DefaultConfigPaths() []string {
	paths := []string{"ideaforge.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".ideaforge.yaml"))
	}
	return paths
}

// Load reads the first config file that exists, then applies environment
// overrides. A missing file is not an error.
func Load(paths ...string) (*FileConfig, error) {
	if len(paths) == 0 {
		paths = DefaultConfigPaths()
	}
	cfg := &FileConfig{}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", p, err)
		}
		logging.Config("loaded config from %s", p)
		break
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *FileConfig) applyEnv() {
	if v := os.Getenv("IDEAFORGE_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("IDEAFORGE_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("IDEAFORGE_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("IDEAFORGE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("IDEAFORGE_CACHE_URL"); v != "" {
		c.CacheURL = v
	}
	if v := os.Getenv("IDEAFORGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("IDEAFORGE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.TimeoutSeconds = n
		} else {
			logging.Warn(logging.CategoryConfig, "ignoring invalid IDEAFORGE_TIMEOUT_SECONDS=%q", v)
		}
	}
	if v := os.Getenv("IDEAFORGE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConcurrent = n
		} else {
			logging.Warn(logging.CategoryConfig, "ignoring invalid IDEAFORGE_MAX_CONCURRENT=%q", v)
		}
	}
}

// ApplyTo overlays process-level settings onto workflow options.
func (c *FileConfig) ApplyTo(opts *WorkflowOptions) {
	if c.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.MaxConcurrent > 0 {
		opts.MaxConcurrentAgents = c.MaxConcurrent
	}
}
