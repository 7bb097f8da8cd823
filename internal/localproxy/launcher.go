// Package localproxy launches the external localproxy binary that bridges
// the cloud tunnel to local listening ports.
//
// This package is responsible for launching the process; it does NOT
// implement any tunnel transport itself. The proxy binary handles the
// WebSocket connection to the tunneling service and the local listeners;
// we hand it a region, a service-to-port mapping, a bind address, and the
// source access token.
//
// Security note: the token is injected through the process environment,
// never as a command-line argument, so it cannot be read out of a process
// listing while the session is up.
package localproxy

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

// Process represents a running localproxy process.
//
// The caller owns the lifecycle: it calls Cmd.Wait() (usually in a
// goroutine) to detect exit, drains Stderr to keep the pipe from filling,
// and signals Cmd.Process to terminate the session.
type Process struct {
	Cmd    *exec.Cmd
	Stderr io.ReadCloser
}

// Launcher starts localproxy processes from a fixed proxy configuration.
//
// Launcher is stateless and safe for concurrent use; each Start call
// creates an independent exec.Cmd.
type Launcher struct {
	cfg appconfig.ProxyConfig
}

// New creates a Launcher for the given proxy configuration.
func New(cfg appconfig.ProxyConfig) *Launcher { return &Launcher{cfg: cfg} }

// EnsureProxyBinary checks that the configured localproxy binary can be
// resolved, either on PATH or inside the configured working directory.
// Called early so a missing binary fails with a clear message instead of
// a confusing exec error mid-connect.
func EnsureProxyBinary(cfg appconfig.ProxyConfig) error {
	if _, err := exec.LookPath(cfg.Binary); err == nil {
		return nil
	}
	candidate := filepath.Join(cfg.WorkDir, cfg.Binary)
	if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
		return nil
	}
	return fmt.Errorf("localproxy binary %q not found in PATH or %s", cfg.Binary, cfg.WorkDir)
}

// BuildArgs constructs the localproxy command-line arguments for a region
// without starting a process. Exposed so argument composition can be
// tested independently from process execution.
//
// Example output: ["-r", "eu-west-1", "-s", "SSH=2222,GORT=5555", "-b", "0.0.0.0"]
func (l *Launcher) BuildArgs(region string) []string {
	mappings := make([]string, 0, len(l.cfg.Forwards))
	for _, f := range l.cfg.Forwards {
		mappings = append(mappings, fmt.Sprintf("%s=%d", f.Service, f.Port))
	}
	return []string{
		"-r", region,
		"-s", strings.Join(mappings, ","),
		"-b", l.cfg.BindAddr,
	}
}

// Start spawns the localproxy process for the given region, with the
// source token delivered via the environment. The process runs in the
// configured working directory, which holds the proxy binary's assets.
//
// Returns an owned Process; a spawn failure is fatal for the connection
// attempt and is not retried.
func (l *Launcher) Start(ctx context.Context, region, sourceToken string) (*Process, error) {
	cmd := l.command(ctx, region, sourceToken)

	// Capture stderr so the session manager can surface proxy errors
	// (bad token, port already bound) when the process dies.
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("start localproxy: %w", err)
	}
	cmd.Stdout = io.Discard
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start localproxy: %w", err)
	}
	return &Process{Cmd: cmd, Stderr: stderr}, nil
}

// command assembles the exec.Cmd without starting it: argv from
// BuildArgs, working directory from config, and the token appended to the
// inherited environment.
func (l *Launcher) command(ctx context.Context, region, sourceToken string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, l.cfg.Binary, l.BuildArgs(region)...)
	cmd.Dir = l.cfg.WorkDir
	cmd.Env = append(os.Environ(), util.TokenEnvVar+"="+sourceToken)
	return cmd
}
