// Package auth runs the external re-authentication flow invoked when the
// directory service reports a dispatch failure.
//
// Recovery shells out to the AWS CLI's SSO login for the configured
// profile. On success the caller must retry its whole operation from
// scratch; recovery never re-runs the failed call itself, which keeps the
// retry decision at the top and rules out recursive retry loops.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/rosterloh/tunnel-manager/internal/util"
)

// CommandRunner abstracts external command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	// Output is discarded: the login flow talks to the user through a
	// browser, and its stdout may echo session details we don't want in
	// our logs.
	return exec.CommandContext(ctx, name, args...).Run()
}

// Recovery invokes `aws sso login` for a fixed profile.
type Recovery struct {
	profile string
	runner  CommandRunner
}

// NewRecovery creates a Recovery for the given profile using the real
// AWS CLI.
func NewRecovery(profile string) *Recovery {
	return &Recovery{profile: profile, runner: execRunner{}}
}

// NewRecoveryWithRunner is the injectable variant used by tests.
func NewRecoveryWithRunner(profile string, runner CommandRunner) *Recovery {
	return &Recovery{profile: profile, runner: runner}
}

// Recover runs the login flow. A nil return means the login succeeded and
// the caller should retry the operation that failed; an error means the
// login itself failed and the attempt is over.
func (r *Recovery) Recover(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, util.LoginTimeout)
	defer cancel()

	slog.Info("running sso login", "profile", r.profile)
	if err := r.runner.Run(ctx, "aws", "sso", "login", "--profile", r.profile); err != nil {
		return fmt.Errorf("aws sso login --profile %s failed: %w; authenticate manually with the aws CLI", r.profile, err)
	}
	return nil
}
