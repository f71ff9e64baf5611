// Package config loads larder settings from defaults, a JSON config file
// and LARDER_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Log       LogConfig
	Assistant AssistantConfig
	Worker    WorkerConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// AssistantConfig tunes conversational turns. MaxToolRounds of zero turns
// off tool calling and asks the model for an interpretation only.
type AssistantConfig struct {
	MaxToolRounds int
	HistoryCap    int
	DefaultUser   string
}

type WorkerConfig struct {
	PollInterval string
}

// Poll returns the parsed worker poll interval.
func (w WorkerConfig) Poll() time.Duration {
	d, err := time.ParseDuration(w.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Assistant: AssistantConfig{
			MaxToolRounds: 4,
			HistoryCap:    50,
			DefaultUser:   "local",
		},
		Worker: WorkerConfig{
			PollInterval: "500ms",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/larder/config.json, then applies LARDER_* environment
// overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (Config, error) {
	return loadWith(newFileBackend(path))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if !strings.HasPrefix(c.Ollama.BaseURL, "http://") && !strings.HasPrefix(c.Ollama.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("ollama.base_url %q must be an http(s) URL", c.Ollama.BaseURL))
	}
	if c.Ollama.Model == "" {
		errs = append(errs, errors.New("ollama.model must not be empty"))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir must not be empty"))
	}
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	if c.Assistant.MaxToolRounds < 0 {
		errs = append(errs, fmt.Errorf("assistant.max_tool_rounds %d must not be negative", c.Assistant.MaxToolRounds))
	}
	if c.Assistant.HistoryCap < 1 {
		errs = append(errs, fmt.Errorf("assistant.history_cap %d must be positive", c.Assistant.HistoryCap))
	}
	if strings.TrimSpace(c.Assistant.DefaultUser) == "" {
		errs = append(errs, errors.New("assistant.default_user must not be empty"))
	}
	if d, err := time.ParseDuration(c.Worker.PollInterval); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("worker.poll_interval %q must be a positive duration", c.Worker.PollInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

var levels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}
