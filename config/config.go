// Package config loads Noctum's process-level and repository-level
// configuration. Both are TOML; both tolerate a missing file by falling
// back to defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Endpoint is one configured LLM host. The Orchestrator instantiates one
// worker per enabled endpoint.
type Endpoint struct {
	Name    string `toml:"name"`
	URL     string `toml:"url"`
	Model   string `toml:"model"`
	Enabled bool   `toml:"enabled"`
}

// ScheduleWindow bounds the hours during which the daemon is allowed to
// start a processing cycle.
type ScheduleWindow struct {
	StartHour           int `toml:"start_hour"`
	EndHour             int `toml:"end_hour"`
	CheckIntervalSeconds int `toml:"check_interval_seconds"`
}

// ProcessConfig is the daemon's own configuration: logging, the web bind
// address, configured LLM endpoints, the schedule window, and an optional
// data directory override.
type ProcessConfig struct {
	LogLevel   string         `toml:"log_level"`
	WebHost    string         `toml:"web_host"`
	WebPort    int            `toml:"web_port"`
	Endpoints  []Endpoint     `toml:"endpoints"`
	Schedule   ScheduleWindow `toml:"schedule"`
	DataDir    string         `toml:"data_dir"`
	SocketPath string         `toml:"socket_path"`
}

// DefaultProcessConfig returns the daemon configuration used when no
// process-level config file is present.
func DefaultProcessConfig() *ProcessConfig {
	return &ProcessConfig{
		LogLevel: "info",
		WebHost:  "127.0.0.1",
		WebPort:  8080,
		Endpoints: []Endpoint{
			{Name: "local", URL: "http://localhost:11434", Model: "qwen2.5-coder:32b", Enabled: true},
		},
		Schedule: ScheduleWindow{
			StartHour:            22,
			EndHour:              6,
			CheckIntervalSeconds: 60,
		},
		DataDir:    defaultDataDir(),
		SocketPath: defaultSocketPath(),
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home + "/.local/share/noctum"
	}
	return ".noctum"
}

func defaultSocketPath() string {
	return defaultDataDir() + "/noctumd.sock"
}

// LoadProcessConfig reads path and merges it over DefaultProcessConfig. A
// missing file is not an error: it yields the defaults unchanged.
func LoadProcessConfig(path string) (*ProcessConfig, error) {
	cfg := DefaultProcessConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read process config: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return cfg, nil
	}

	defaultDir, defaultSocket := cfg.DataDir, cfg.SocketPath
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse process config: %w", err)
	}
	// An overridden data_dir carries the default control socket with it,
	// unless socket_path is set explicitly.
	if cfg.DataDir != defaultDir && cfg.SocketPath == defaultSocket {
		cfg.SocketPath = cfg.DataDir + "/noctumd.sock"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural invariants the Orchestrator relies on.
func (c *ProcessConfig) Validate() error {
	if c.Schedule.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("schedule.check_interval_seconds must be positive")
	}
	if c.Schedule.StartHour < 0 || c.Schedule.StartHour > 23 {
		return fmt.Errorf("schedule.start_hour must be between 0 and 23")
	}
	if c.Schedule.EndHour < 0 || c.Schedule.EndHour > 23 {
		return fmt.Errorf("schedule.end_hour must be between 0 and 23")
	}
	for _, ep := range c.Endpoints {
		if ep.Enabled && ep.URL == "" {
			return fmt.Errorf("endpoint %q: enabled endpoint requires a url", ep.Name)
		}
	}
	return nil
}

// EnabledEndpoints returns only the endpoints flagged enabled, preserving
// configured order.
func (c *ProcessConfig) EnabledEndpoints() []Endpoint {
	out := make([]Endpoint, 0, len(c.Endpoints))
	for _, ep := range c.Endpoints {
		if ep.Enabled {
			out = append(out, ep)
		}
	}
	return out
}
