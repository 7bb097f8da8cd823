package security

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Finding struct {
	Severity       Severity `json:"severity"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type AuditReport struct {
	Findings []Finding `json:"findings"`
}

func (r AuditReport) HasHigh() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// RunLocalAudit inspects local tunnel-manager file and credential posture.
func RunLocalAudit() (AuditReport, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return AuditReport{}, err
	}

	var findings []Finding

	// The stock configuration binds the proxy on all interfaces so the
	// tunneled ports are reachable from the LAN. Flag it: anyone who can
	// reach the machine can reach the device while a session is up.
	if ip := net.ParseIP(cfg.Proxy.BindAddr); ip == nil || !ip.IsLoopback() {
		findings = append(findings, Finding{
			Severity:       SeverityMedium,
			Target:         "config.yaml",
			Message:        fmt.Sprintf("proxy binds on %s; tunneled ports are reachable from other hosts", cfg.Proxy.BindAddr),
			Recommendation: "set proxy.bind_addr to 127.0.0.1 unless LAN access is required",
		})
	}

	// A tunnel access token lingering in the interactive environment
	// outlives the session it belonged to.
	if os.Getenv(util.TokenEnvVar) != "" {
		findings = append(findings, Finding{
			Severity:       SeverityHigh,
			Target:         util.TokenEnvVar,
			Message:        "a tunnel access token is set in the current environment",
			Recommendation: "unset " + util.TokenEnvVar + "; tokens are injected into the proxy process only",
		})
	}

	cfgDir, err := appconfig.ConfigDir()
	if err == nil {
		checkPathPerm(&findings, cfgDir, 0o700, false)
		checkPathPerm(&findings, filepath.Join(cfgDir, "config.yaml"), 0o600, true)
		checkPathPerm(&findings, filepath.Join(cfgDir, "session.json"), 0o600, true)
		checkPathPerm(&findings, filepath.Join(cfgDir, "devices.yaml"), 0o600, true)
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return severityRank(findings[i].Severity) > severityRank(findings[j].Severity)
		}
		if findings[i].Target != findings[j].Target {
			return findings[i].Target < findings[j].Target
		}
		return findings[i].Message < findings[j].Message
	})
	return AuditReport{Findings: findings}, nil
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

func checkPathPerm(findings *[]Finding, path string, max os.FileMode, isFile bool) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		*findings = append(*findings, Finding{
			Severity:       SeverityLow,
			Target:         path,
			Message:        fmt.Sprintf("unable to inspect permissions: %v", err),
			Recommendation: "verify path and permissions manually",
		})
		return
	}
	mode := st.Mode().Perm()
	if mode > max {
		kind := "directory"
		if isFile {
			kind = "file"
		}
		*findings = append(*findings, Finding{
			Severity:       SeverityMedium,
			Target:         path,
			Message:        fmt.Sprintf("%s permissions are too broad (%#o)", kind, mode),
			Recommendation: fmt.Sprintf("restrict permissions to %#o or tighter", max),
		})
	}
}
