package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rosterloh/tunnel-manager/internal/model"
)

func TestLoadCreatesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AWS.Profile != "iotmgmt_prod" || cfg.AWS.Region != "eu-west-1" {
		t.Fatalf("unexpected AWS defaults: %+v", cfg.AWS)
	}
	if len(cfg.Proxy.Forwards) != 2 {
		t.Fatalf("expected 2 default forwards, got %d", len(cfg.Proxy.Forwards))
	}
	if cfg.Proxy.Forwards[0].Service != "SSH" || cfg.Proxy.Forwards[0].Port != 2222 {
		t.Fatalf("unexpected first forward: %+v", cfg.Proxy.Forwards[0])
	}
	if cfg.Proxy.Forwards[1].Service != "GORT" || cfg.Proxy.Forwards[1].Port != 5555 {
		t.Fatalf("unexpected second forward: %+v", cfg.Proxy.Forwards[1])
	}
	if cfg.Proxy.BindAddr != "0.0.0.0" {
		t.Fatalf("unexpected bind addr: %s", cfg.Proxy.BindAddr)
	}

	// The file should have been written for next time.
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.AWS.Region = "us-east-1"
	cfg.UI.RefreshSeconds = 7
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AWS.Region != "us-east-1" {
		t.Fatalf("region not persisted: %s", got.AWS.Region)
	}
	if got.UI.RefreshSeconds != 7 {
		t.Fatalf("refresh not persisted: %d", got.UI.RefreshSeconds)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Proxy.Forwards = []model.ServiceForward{
		{Service: "SSH", Port: 2222},
		{Service: "GORT", Port: 2222},
	}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected duplicate-port config to be rejected")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"empty profile", func(c *Config) { c.AWS.Profile = "" }, true},
		{"empty region", func(c *Config) { c.AWS.Region = "" }, true},
		{"no forwards", func(c *Config) { c.Proxy.Forwards = nil }, true},
		{"bad port", func(c *Config) { c.Proxy.Forwards[0].Port = 0 }, true},
		{"empty service", func(c *Config) { c.Proxy.Forwards[0].Service = "" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestServiceNames(t *testing.T) {
	cfg := Default()
	names := cfg.Proxy.ServiceNames()
	if len(names) != 2 || names[0] != "SSH" || names[1] != "GORT" {
		t.Fatalf("unexpected service names: %v", names)
	}
}
