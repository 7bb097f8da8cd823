// Package appconfig manages application configuration and runtime file paths.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

// AWSConfig selects the credential profile and region used for directory
// service calls and for the sso login recovery flow.
type AWSConfig struct {
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`
}

// ProxyConfig describes how the localproxy process is launched.
type ProxyConfig struct {
	// Binary is the localproxy executable name or path.
	Binary string `yaml:"binary"`
	// WorkDir is the directory containing the proxy binary's assets;
	// the process is started with this as its working directory.
	WorkDir string `yaml:"work_dir"`
	// BindAddr is the local address the proxy listens on.
	BindAddr string `yaml:"bind_addr"`
	// Forwards maps tunneled service names to local ports, in the order
	// they are presented to the directory service.
	Forwards []model.ServiceForward `yaml:"forwards"`
}

// UIConfig contains TUI display settings.
type UIConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
}

// Config holds application-level configuration.
type Config struct {
	AWS   AWSConfig   `yaml:"aws"`
	Proxy ProxyConfig `yaml:"proxy"`
	UI    UIConfig    `yaml:"ui"`
}

// Default returns the built-in configuration, matching the constants the
// tool shipped with before they were externalized: the iotmgmt_prod SSO
// profile in eu-west-1, SSH on 2222 and the remote terminal (GORT) on
// 5555, bound on all interfaces.
func Default() Config {
	return Config{
		AWS: AWSConfig{
			Profile: "iotmgmt_prod",
			Region:  "eu-west-1",
		},
		Proxy: ProxyConfig{
			Binary:   "localproxy",
			WorkDir:  "assets",
			BindAddr: "0.0.0.0",
			Forwards: []model.ServiceForward{
				{Service: "SSH", Port: 2222},
				{Service: "GORT", Port: 5555},
			},
		},
		UI: UIConfig{RefreshSeconds: util.DefaultRefreshSeconds},
	}
}

// ServiceNames returns the configured service names in order, for use in
// a DestinationConfig.
func (p ProxyConfig) ServiceNames() []string {
	out := make([]string, 0, len(p.Forwards))
	for _, f := range p.Forwards {
		out = append(out, f.Service)
	}
	return out
}

// Validate checks the parts of the config that would otherwise fail deep
// inside a connection attempt.
func (c Config) Validate() error {
	if c.AWS.Profile == "" {
		return fmt.Errorf("aws.profile cannot be empty")
	}
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region cannot be empty")
	}
	if len(c.Proxy.Forwards) == 0 {
		return fmt.Errorf("proxy.forwards cannot be empty")
	}
	seen := map[int]string{}
	for _, f := range c.Proxy.Forwards {
		if f.Service == "" {
			return fmt.Errorf("proxy.forwards entry missing service name")
		}
		if err := util.ValidatePort(f.Port); err != nil {
			return fmt.Errorf("proxy.forwards %s: %w", f.Service, err)
		}
		if other, ok := seen[f.Port]; ok {
			return fmt.Errorf("proxy.forwards %s and %s share port %d", other, f.Service, f.Port)
		}
		seen[f.Port] = f.Service
	}
	return nil
}

// ConfigDir returns the application config directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/tunnel-manager.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tunnel-manager"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "tunnel-manager"), nil
}

// SessionFilePath returns the full path to session.json.
func SessionFilePath() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "session.json"), nil
}

// Load reads config.yaml from the config directory.
// If the file doesn't exist, creates it with defaults.
func Load() (Config, error) {
	d, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	if err := os.MkdirAll(d, 0o700); err != nil {
		return Config{}, err
	}
	path := filepath.Join(d, "config.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.UI.RefreshSeconds <= 0 {
		cfg.UI.RefreshSeconds = util.DefaultRefreshSeconds
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to config.yaml.
func Save(cfg Config) error {
	d, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o700); err != nil {
		return err
	}
	path := filepath.Join(d, "config.yaml")
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
