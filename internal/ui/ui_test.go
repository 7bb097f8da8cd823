package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/connect"
	"github.com/rosterloh/tunnel-manager/internal/history"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/reconcile"
)

func testModel(t *testing.T) modelUI {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return initialModel(appconfig.Default(), connect.NewManager(nil))
}

func TestConnectErrorOpensPopup(t *testing.T) {
	m := testModel(t)

	next, _ := m.Update(connectDoneMsg{deviceID: "G111070", err: assertErr{}})
	got := next.(modelUI)
	if got.errMsg == "" {
		t.Fatal("expected error popup after failed connect")
	}
	if got.connecting {
		t.Error("connecting flag not cleared")
	}

	dismissed, _ := got.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if dismissed.(modelUI).errMsg != "" {
		t.Error("enter did not dismiss the error popup")
	}
}

func TestRetryableErrorStaysInStatusLine(t *testing.T) {
	m := testModel(t)

	next, _ := m.Update(connectDoneMsg{deviceID: "G111070", err: reconcile.ErrRetryAfterLogin})
	got := next.(modelUI)
	if got.errMsg != "" {
		t.Errorf("retryable error opened popup: %q", got.errMsg)
	}
	if !strings.Contains(got.status, "try connecting again") {
		t.Errorf("status = %q, want retry prompt", got.status)
	}
}

func TestConnectSuccessUpdatesStatus(t *testing.T) {
	m := testModel(t)

	rt := model.SessionRuntime{DeviceID: "G111070", TunnelID: "tun-1", PID: 42, State: model.SessionUp}
	next, _ := m.Update(connectDoneMsg{deviceID: "G111070", rt: rt})
	got := next.(modelUI)
	if !strings.Contains(got.status, "G111070") || !strings.Contains(got.status, "tun-1") {
		t.Errorf("status = %q", got.status)
	}
}

func TestTabFillsInputFromRecent(t *testing.T) {
	m := testModel(t)
	if err := history.Touch("G111070"); err != nil {
		t.Fatal(err)
	}
	m.reloadRecent()
	if len(m.recent) == 0 {
		t.Fatal("expected recent device")
	}
	m.sel = 0

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	got := next.(modelUI)
	if got.input.Value() != "G111070" {
		t.Errorf("input = %q, want G111070", got.input.Value())
	}
}

func TestEnterIgnoredWhileConnecting(t *testing.T) {
	m := testModel(t)
	m.connecting = true

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no command while a connect is in flight")
	}
	if got := next.(modelUI); !got.connecting {
		t.Error("connecting flag lost")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "open tunnel failed" }
