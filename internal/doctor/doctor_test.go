package doctor

import (
	"testing"

	"github.com/rosterloh/tunnel-manager/internal/model"
)

type fakeStater struct {
	rt model.SessionRuntime
	ok bool
}

func (f *fakeStater) LoadRuntime() error { return nil }
func (f *fakeStater) Snapshot() (model.SessionRuntime, bool) {
	return f.rt, f.ok
}

func findIssue(issues []Issue, check string) (Issue, bool) {
	for _, i := range issues {
		if i.Check == check {
			return i, true
		}
	}
	return Issue{}, false
}

func TestRunWithNoSession(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	report, err := Run(&fakeStater{ok: false})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, found := findIssue(report.Issues, "session-stale"); found {
		t.Error("session-stale reported without a session")
	}
	if _, found := findIssue(report.Issues, "session-error"); found {
		t.Error("session-error reported without a session")
	}
}

func TestRunReportsStaleSession(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	stater := &fakeStater{
		rt: model.SessionRuntime{DeviceID: "G111070", State: model.SessionUp, PID: 0},
		ok: true,
	}
	report, err := Run(stater)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	issue, found := findIssue(report.Issues, "session-stale")
	if !found {
		t.Fatal("expected session-stale issue")
	}
	if issue.Severity != SeverityMedium {
		t.Errorf("severity = %s, want medium", issue.Severity)
	}
	if issue.Target != "G111070" {
		t.Errorf("target = %s, want G111070", issue.Target)
	}
}

func TestRunReportsSessionError(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	stater := &fakeStater{
		rt: model.SessionRuntime{
			DeviceID:  "G111070",
			State:     model.SessionError,
			LastError: "proxy exited: exit status 1",
		},
		ok: true,
	}
	report, err := Run(stater)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	issue, found := findIssue(report.Issues, "session-error")
	if !found {
		t.Fatal("expected session-error issue")
	}
	if issue.Message != "proxy exited: exit status 1" {
		t.Errorf("message = %q", issue.Message)
	}
}

func TestRunWithNilStater(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := Run(nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestSortIssuesOrdersBySeverity(t *testing.T) {
	issues := []Issue{
		{Severity: SeverityLow, Check: "b"},
		{Severity: SeverityHigh, Check: "a"},
		{Severity: SeverityMedium, Check: "c"},
		{Severity: SeverityHigh, Check: "a", Target: "x"},
	}
	sorted := sortIssues(issues)
	if sorted[0].Severity != SeverityHigh || sorted[1].Severity != SeverityHigh {
		t.Errorf("high severity issues not first: %+v", sorted)
	}
	if sorted[len(sorted)-1].Severity != SeverityLow {
		t.Errorf("low severity issue not last: %+v", sorted)
	}
	if sorted[0].Target > sorted[1].Target {
		t.Errorf("ties not ordered by target: %+v", sorted[:2])
	}
}
