package model

import "time"

// TunnelStatus mirrors the status field reported by the tunnel directory
// service. Anything other than "OPEN" is stale for our purposes.
type TunnelStatus string

const (
	StatusOpen    TunnelStatus = "OPEN"
	StatusClosed  TunnelStatus = "CLOSED"
	StatusUnknown TunnelStatus = "UNKNOWN"
)

// TunnelSummary is one tunnel record as returned by the directory service.
// The reconciler branches on Status but never mutates a summary.
type TunnelSummary struct {
	TunnelID  string       `json:"tunnel_id"`
	DeviceID  string       `json:"device_id"`
	Status    TunnelStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// TokenPair holds the two access tokens produced by an open or rotate
// call. Only the source token is consumed locally; the destination token
// is delivered to the remote agent by the cloud service. Both are secrets
// and must never appear in logs, error strings, or command-line arguments.
type TokenPair struct {
	SourceToken      string
	DestinationToken string
}

// TunnelCredential is the reconciler's result: the single tunnel the
// caller should now use and a freshly issued source token for it.
type TunnelCredential struct {
	TunnelID    string
	SourceToken string
}

// DestinationConfig is the request parameter for open/rotate calls.
// It is built fresh for every call and never persisted.
type DestinationConfig struct {
	DeviceID string
	Services []string
}

// ServiceForward maps one tunneled service name to its local port.
type ServiceForward struct {
	Service string `yaml:"service" json:"service"`
	Port    int    `yaml:"port" json:"port"`
}

type SessionState string

const (
	SessionDown     SessionState = "down"
	SessionStarting SessionState = "starting"
	SessionUp       SessionState = "up"
	SessionStopping SessionState = "stopping"
	SessionError    SessionState = "error"
)

// SessionRuntime is the persisted view of the active proxy session. It
// deliberately excludes tokens: the source token lives only in the proxy
// process environment.
type SessionRuntime struct {
	DeviceID  string       `json:"device_id"`
	TunnelID  string       `json:"tunnel_id"`
	Region    string       `json:"region"`
	PID       int          `json:"pid,omitempty"`
	State     SessionState `json:"state"`
	StartedAt time.Time    `json:"-"`
	UptimeSec int64        `json:"uptime_seconds"`
	LastError string       `json:"last_error,omitempty"`
}

// DeviceEntry is a named device in the local registry.
type DeviceEntry struct {
	Alias    string `yaml:"alias" json:"alias"`
	DeviceID string `yaml:"device_id" json:"device_id"`
	Notes    string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

func (d DeviceEntry) DisplayName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.DeviceID
}
