package security

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rosterloh/tunnel-manager/internal/util"
)

func TestClassifiedErrorMessages(t *testing.T) {
	err := NewClassifiedError("connection failed", "dial tcp 10.0.0.5: timeout")
	if got := UserMessage(err, false); got != "connection failed" {
		t.Fatalf("UserMessage = %q", got)
	}
	if got := DebugMessage(err); got != "dial tcp 10.0.0.5: timeout" {
		t.Fatalf("DebugMessage = %q", got)
	}
}

func TestUserMessageWrapped(t *testing.T) {
	inner := NewClassifiedError("safe", "detail")
	wrapped := fmt.Errorf("connect: %w", inner)
	if got := UserMessage(wrapped, false); got != "safe" {
		t.Fatalf("wrapped UserMessage = %q", got)
	}
}

func TestUserMessagePlainError(t *testing.T) {
	err := errors.New("plain failure")
	if got := UserMessage(err, false); got != "plain failure" {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestRedactMessageToken(t *testing.T) {
	msg := "exec failed: env " + util.TokenEnvVar + "=AQGAAXiG8jH7 something"
	got := RedactMessage(msg)
	if strings.Contains(got, "AQGAAXiG8jH7") {
		t.Fatalf("token survived redaction: %q", got)
	}
	if !strings.Contains(got, util.TokenEnvVar+"=[redacted]") {
		t.Fatalf("redaction marker missing: %q", got)
	}
}

func TestAuditFlagsTokenInEnvironment(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(util.TokenEnvVar, "AQGAAleaked")

	report, err := RunLocalAudit()
	if err != nil {
		t.Fatalf("RunLocalAudit: %v", err)
	}
	if !report.HasHigh() {
		t.Fatal("expected high-severity finding for token in environment")
	}
	found := false
	for _, f := range report.Findings {
		if f.Target == util.TokenEnvVar {
			found = true
			if strings.Contains(f.Message, "AQGAAleaked") {
				t.Fatalf("finding leaks token value: %q", f.Message)
			}
		}
	}
	if !found {
		t.Fatal("no finding targeting the token env var")
	}
}

func TestAuditFlagsPublicBind(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	report, err := RunLocalAudit()
	if err != nil {
		t.Fatalf("RunLocalAudit: %v", err)
	}
	// Defaults bind on 0.0.0.0, so the audit should mention it.
	found := false
	for _, f := range report.Findings {
		if strings.Contains(f.Message, "0.0.0.0") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected public-bind finding, got %+v", report.Findings)
	}
}
