// Package doctor runs local preflight diagnostics: everything a
// connection attempt needs that can be checked without touching the
// network.
package doctor

import (
	"os/exec"
	"sort"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/localproxy"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/security"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// SessionStater exposes the session manager state the doctor inspects.
type SessionStater interface {
	LoadRuntime() error
	Snapshot() (model.SessionRuntime, bool)
}

// Run executes local diagnostics for tunnel-manager operations.
func Run(mgr SessionStater) (Report, error) {
	var issues []Issue

	cfg, err := appconfig.Load()
	if err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "config",
			Target:         "config.yaml",
			Message:        err.Error(),
			Recommendation: "fix or delete config.yaml; defaults are recreated on next run",
		})
		return Report{Issues: sortIssues(issues)}, nil
	}

	if err := localproxy.EnsureProxyBinary(cfg.Proxy); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "localproxy-binary",
			Target:         cfg.Proxy.Binary,
			Message:        err.Error(),
			Recommendation: "install the AWS IoT localproxy binary or set proxy.binary/proxy.work_dir",
		})
	}

	if _, err := exec.LookPath("aws"); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "aws-cli",
			Target:         "PATH",
			Message:        "aws CLI not found",
			Recommendation: "install the AWS CLI; it is required for the sso login recovery flow",
		})
	}

	if mgr != nil {
		if err := mgr.LoadRuntime(); err == nil {
			if rt, ok := mgr.Snapshot(); ok {
				if rt.State == model.SessionUp && rt.PID == 0 {
					issues = append(issues, Issue{
						Severity:       SeverityMedium,
						Check:          "session-stale",
						Target:         rt.DeviceID,
						Message:        "session state shows up with missing PID",
						Recommendation: "disconnect and reconnect to refresh session state",
					})
				}
				if rt.State == model.SessionError {
					issues = append(issues, Issue{
						Severity:       SeverityMedium,
						Check:          "session-error",
						Target:         rt.DeviceID,
						Message:        rt.LastError,
						Recommendation: "inspect `tunnel-manager events` for the failure detail",
					})
				}
			}
		}
	}

	if audit, err := security.RunLocalAudit(); err == nil {
		for _, f := range audit.Findings {
			sev := SeverityLow
			if f.Severity == security.SeverityMedium {
				sev = SeverityMedium
			}
			if f.Severity == security.SeverityHigh {
				sev = SeverityHigh
			}
			issues = append(issues, Issue{
				Severity:       sev,
				Check:          "security-audit",
				Target:         f.Target,
				Message:        f.Message,
				Recommendation: f.Recommendation,
			})
		}
	}

	return Report{Issues: sortIssues(issues)}, nil
}

func sortIssues(issues []Issue) []Issue {
	sort.Slice(issues, func(i, j int) bool {
		ri := severityRank(issues[i].Severity)
		rj := severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		if issues[i].Target != issues[j].Target {
			return issues[i].Target < issues[j].Target
		}
		return issues[i].Message < issues[j].Message
	})
	return issues
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
