package connect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/events"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/reconcile"
)

// ErrSessionActive is returned when Connect is called while a session is
// already up. The local ports are fixed, so a second proxy process would
// only fight the first one for them.
var ErrSessionActive = errors.New("a session is already active; disconnect first")

// ErrNoSession is returned by Disconnect when nothing is connected.
var ErrNoSession = errors.New("no active session")

// Connector is the orchestrator surface the Manager drives.
type Connector interface {
	Connect(ctx context.Context, deviceID string) (*Session, error)
}

// Manager tracks the one active proxy session, watches its process, and
// persists runtime state so the CLI can report status across invocations.
type Manager struct {
	mu      sync.Mutex
	conn    Connector
	events  *events.Store
	runtime *model.SessionRuntime
	session *Session
}

// NewManager creates a session manager over the given connector.
func NewManager(conn Connector) *Manager {
	return &Manager{conn: conn, events: events.NewStore()}
}

// Connect establishes a session for the device and begins watching the
// proxy process. At most one session may be active.
func (m *Manager) Connect(ctx context.Context, deviceID string) (model.SessionRuntime, error) {
	m.mu.Lock()
	if m.runtime != nil && (m.runtime.State == model.SessionUp || m.runtime.State == model.SessionStarting) {
		m.mu.Unlock()
		return model.SessionRuntime{}, ErrSessionActive
	}
	rt := model.SessionRuntime{
		DeviceID:  deviceID,
		State:     model.SessionStarting,
		StartedAt: time.Now(),
	}
	m.runtime = &rt
	m.mu.Unlock()

	sess, err := m.conn.Connect(ctx, deviceID)
	if err != nil {
		m.mu.Lock()
		rt.State = model.SessionError
		rt.LastError = err.Error()
		m.runtime = &rt
		m.mu.Unlock()
		if persistErr := m.persist(); persistErr != nil {
			slog.Warn("failed to persist session state after connect error", "error", persistErr)
		}
		evtType := events.TypeConnectFailed
		if errors.Is(err, reconcile.ErrRetryAfterLogin) {
			evtType = events.TypeLoginRecovery
		}
		m.appendEvent(events.Event{DeviceID: deviceID, EventType: evtType, Message: err.Error()})
		return rt, err
	}

	m.mu.Lock()
	rt.TunnelID = sess.TunnelID
	rt.Region = sess.Region
	rt.PID = sess.Proc.Cmd.Process.Pid
	rt.State = model.SessionUp
	m.runtime = &rt
	m.session = sess
	rtCopy := rt
	m.mu.Unlock()

	go m.watchProcess(sess)
	if err := m.persist(); err != nil {
		slog.Warn("failed to persist session state after connect", "error", err)
	}
	m.appendEvent(events.Event{
		DeviceID:  deviceID,
		TunnelID:  sess.TunnelID,
		EventType: events.TypeConnected,
		PID:       rtCopy.PID,
	})
	return rtCopy, nil
}

// watchProcess drains the proxy's stderr and waits for exit. A bounded
// head of stderr becomes LastError when the process dies on its own; the
// rest is discarded so a chatty proxy never blocks on a full pipe.
func (m *Manager) watchProcess(sess *Session) {
	var tail bytes.Buffer
	_, _ = io.Copy(&tail, io.LimitReader(sess.Proc.Stderr, 4096))
	_, _ = io.Copy(io.Discard, sess.Proc.Stderr)
	err := sess.Proc.Cmd.Wait()

	m.mu.Lock()
	rt := m.runtime
	if rt == nil || m.session != sess {
		m.mu.Unlock()
		return
	}
	if rt.State != model.SessionStopping {
		if err != nil {
			rt.State = model.SessionError
			rt.LastError = firstLine(tail.String())
			if rt.LastError == "" {
				rt.LastError = err.Error()
			}
		} else {
			rt.State = model.SessionDown
		}
	}
	rt.PID = 0
	m.session = nil
	evt := events.Event{
		DeviceID:  rt.DeviceID,
		TunnelID:  rt.TunnelID,
		EventType: events.TypeProxyExited,
		Message:   rt.LastError,
	}
	m.mu.Unlock()

	if persistErr := m.persist(); persistErr != nil {
		slog.Warn("failed to persist session state after process exit", "error", persistErr)
	}
	m.appendEvent(evt)
}

// Disconnect terminates the active session's proxy process. Termination
// is the caller's explicit act; the tunnel record stays open at the
// directory for the next connect to reuse.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	rt := m.runtime
	sess := m.session
	if rt == nil || (rt.State != model.SessionUp && rt.State != model.SessionStarting) {
		m.mu.Unlock()
		return ErrNoSession
	}
	rt.State = model.SessionStopping
	m.mu.Unlock()

	if sess != nil && sess.Proc.Cmd.Process != nil {
		if err := sess.Proc.Cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			// Escalate: a proxy that ignores SIGTERM still has to go.
			_ = sess.Proc.Cmd.Process.Kill()
		}
	} else if rt.PID > 0 && processAlive(rt.PID) {
		// Session restored from disk; we never had the Cmd handle.
		if p, err := os.FindProcess(rt.PID); err == nil {
			_ = p.Signal(syscall.SIGTERM)
		}
	}

	m.mu.Lock()
	rt.State = model.SessionDown
	rt.PID = 0
	m.session = nil
	evt := events.Event{
		DeviceID:  rt.DeviceID,
		TunnelID:  rt.TunnelID,
		EventType: events.TypeDisconnected,
	}
	m.mu.Unlock()

	if err := m.persist(); err != nil {
		slog.Warn("failed to persist session state after disconnect", "error", err)
	}
	m.appendEvent(evt)
	return nil
}

// Snapshot returns the current session runtime, if any, with uptime
// refreshed.
func (m *Manager) Snapshot() (model.SessionRuntime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runtime == nil {
		return model.SessionRuntime{}, false
	}
	rt := *m.runtime
	if !rt.StartedAt.IsZero() {
		rt.UptimeSec = int64(time.Since(rt.StartedAt).Seconds())
	}
	return rt, true
}

// LoadRuntime restores session state from disk. A persisted session whose
// process has died is marked down.
func (m *Manager) LoadRuntime() error {
	path, err := appconfig.SessionFilePath()
	if err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var rt model.SessionRuntime
	if err := json.Unmarshal(b, &rt); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt.PID > 0 && processAlive(rt.PID) {
		m.runtime = &rt
	} else {
		rt.State = model.SessionDown
		rt.PID = 0
		m.runtime = &rt
	}
	return nil
}

func (m *Manager) persist() error {
	path, err := appconfig.SessionFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	m.mu.Lock()
	rt := m.runtime
	var b []byte
	if rt != nil {
		snapshot := *rt
		if !snapshot.StartedAt.IsZero() {
			snapshot.UptimeSec = int64(time.Since(snapshot.StartedAt).Seconds())
		}
		b, err = json.MarshalIndent(snapshot, "", "  ")
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return os.WriteFile(path, b, 0o600)
}

func (m *Manager) appendEvent(evt events.Event) {
	if err := m.events.Append(evt); err != nil {
		slog.Warn("failed to append session event", "error", err)
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
