package auth

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

// fakeRunner records the command it was asked to run and returns a
// programmed error, standing in for the real AWS CLI.
type fakeRunner struct {
	err  error
	name string
	args []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.name = name
	f.args = args
	return f.err
}

func TestRecoverRunsSSOLogin(t *testing.T) {
	runner := &fakeRunner{}
	r := NewRecoveryWithRunner("iotmgmt_prod", runner)

	if err := r.Recover(context.Background()); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if runner.name != "aws" {
		t.Fatalf("ran %q, want aws", runner.name)
	}
	want := "sso login --profile iotmgmt_prod"
	if got := strings.Join(runner.args, " "); got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
}

func TestRecoverLoginFailure(t *testing.T) {
	runner := &fakeRunner{err: &exec.ExitError{}}
	r := NewRecoveryWithRunner("iotmgmt_prod", runner)

	err := r.Recover(context.Background())
	if err == nil {
		t.Fatal("expected error when login exits nonzero")
	}
	if !strings.Contains(err.Error(), "aws sso login") {
		t.Fatalf("error should name the failed command: %v", err)
	}
}

func TestRecoverSpawnFailure(t *testing.T) {
	runner := &fakeRunner{err: exec.ErrNotFound}
	r := NewRecoveryWithRunner("iotmgmt_prod", runner)

	err := r.Recover(context.Background())
	if err == nil {
		t.Fatal("expected error when aws CLI is missing")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("underlying cause lost: %v", err)
	}
}
