package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/auth"
	"github.com/rosterloh/tunnel-manager/internal/connect"
	"github.com/rosterloh/tunnel-manager/internal/directory"
	"github.com/rosterloh/tunnel-manager/internal/history"
	"github.com/rosterloh/tunnel-manager/internal/localproxy"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/reconcile"
	"github.com/rosterloh/tunnel-manager/internal/registry"
	"github.com/rosterloh/tunnel-manager/internal/shell"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

type tickMsg time.Time

type connectDoneMsg struct {
	deviceID string
	rt       model.SessionRuntime
	err      error
}

type disconnectDoneMsg struct {
	err error
}

type statusMsg string

type modelUI struct {
	input      textinput.Model
	spin       spinner.Model
	connecting bool
	status     string
	errMsg     string
	rt         model.SessionRuntime
	hasRT      bool
	recent     []string
	sel        int
	width      int
	height     int
	cfg        appconfig.Config
	mgr        *connect.Manager
}

func initialModel(cfg appconfig.Config, mgr *connect.Manager) modelUI {
	ti := textinput.New()
	ti.Placeholder = "device id or alias (e.g. G111070)"
	ti.CharLimit = util.MaxDeviceIDLength
	ti.Width = 40
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := modelUI{input: ti, spin: sp, cfg: cfg, mgr: mgr, sel: -1}
	m.rt, m.hasRT = mgr.Snapshot()
	m.reloadRecent()
	m.status = "Type a device id and press Enter to connect."
	return m
}

func (m *modelUI) reloadRecent() {
	recent, err := history.Recent(8)
	if err != nil {
		m.status = "history load error: " + err.Error()
		return
	}
	m.recent = recent
	if m.sel >= len(m.recent) {
		m.sel = len(m.recent) - 1
	}
}

func tickCmd(seconds int) tea.Cmd {
	if seconds <= 0 {
		seconds = util.DefaultRefreshSeconds
	}
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func connectCmd(mgr *connect.Manager, raw string) tea.Cmd {
	return func() tea.Msg {
		deviceID, err := registry.Resolve(raw)
		if err != nil {
			return connectDoneMsg{deviceID: raw, err: err}
		}
		rt, err := mgr.Connect(context.Background(), deviceID)
		if err != nil {
			return connectDoneMsg{deviceID: deviceID, err: err}
		}
		_ = history.Touch(deviceID)
		return connectDoneMsg{deviceID: deviceID, rt: rt}
	}
}

func disconnectCmd(mgr *connect.Manager) tea.Cmd {
	return func() tea.Msg {
		return disconnectDoneMsg{err: mgr.Disconnect()}
	}
}

func (m modelUI) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tickCmd(m.cfg.UI.RefreshSeconds))
}

func (m modelUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.rt, m.hasRT = m.mgr.Snapshot()
		return m, tickCmd(m.cfg.UI.RefreshSeconds)
	case spinner.TickMsg:
		if !m.connecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case connectDoneMsg:
		m.connecting = false
		m.rt, m.hasRT = m.mgr.Snapshot()
		if msg.err != nil {
			if connect.Retryable(msg.err) {
				m.status = connect.UserMessage(msg.err)
			} else {
				m.errMsg = connect.UserMessage(msg.err)
			}
			return m, nil
		}
		m.reloadRecent()
		m.status = fmt.Sprintf("Connected to %s (tunnel=%s pid=%d).", msg.deviceID, msg.rt.TunnelID, msg.rt.PID)
		return m, nil
	case disconnectDoneMsg:
		m.rt, m.hasRT = m.mgr.Snapshot()
		if msg.err != nil {
			m.errMsg = connect.UserMessage(msg.err)
		} else {
			m.status = "Disconnected."
		}
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case tea.KeyMsg:
		if m.errMsg != "" {
			switch msg.String() {
			case "enter", "esc":
				m.errMsg = ""
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c":
			_ = m.mgr.Disconnect()
			return m, tea.Quit
		case "esc":
			if m.connecting {
				return m, nil
			}
			_ = m.mgr.Disconnect()
			return m, tea.Quit
		case "enter":
			if m.connecting {
				return m, nil
			}
			target := strings.TrimSpace(m.input.Value())
			if target == "" && m.sel >= 0 && m.sel < len(m.recent) {
				target = m.recent[m.sel]
			}
			m.connecting = true
			m.status = "Connecting..."
			return m, tea.Batch(m.spin.Tick, connectCmd(m.mgr, target))
		case "ctrl+d":
			if m.connecting {
				return m, nil
			}
			m.status = "Disconnecting..."
			return m, disconnectCmd(m.mgr)
		case "ctrl+s":
			if !m.hasRT || m.rt.State != model.SessionUp {
				m.status = "No active session to ssh into."
				return m, nil
			}
			port := 0
			for _, f := range m.cfg.Proxy.Forwards {
				if f.Service == "SSH" {
					port = f.Port
				}
			}
			if port == 0 {
				m.status = "No SSH service configured in proxy.forwards."
				return m, nil
			}
			cmd := shell.Command("", port)
			return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
				if err != nil {
					return statusMsg("ssh exited: " + err.Error())
				}
				return statusMsg("ssh session closed")
			})
		case "down":
			if m.sel < len(m.recent)-1 {
				m.sel++
			}
			return m, nil
		case "up":
			if m.sel > 0 {
				m.sel--
			}
			return m, nil
		case "tab":
			if m.sel >= 0 && m.sel < len(m.recent) {
				m.input.SetValue(m.recent[m.sel])
				m.input.CursorEnd()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m modelUI) View() string {
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("Device Tunnel Manager")
	subhead := fmt.Sprintf("profile=%s region=%s refresh=%ds", m.cfg.AWS.Profile, m.cfg.AWS.Region, clampRefresh(m.cfg.UI.RefreshSeconds))

	input := strings.Builder{}
	input.WriteString("Device: " + m.input.View() + "\n")
	if m.connecting {
		input.WriteString(m.spin.View() + " connecting...\n")
	}

	recent := strings.Builder{}
	if len(m.recent) == 0 {
		recent.WriteString("(no recent devices)\n")
	}
	for i, id := range m.recent {
		cursor := " "
		if i == m.sel {
			cursor = ">"
		}
		recent.WriteString(fmt.Sprintf("%s %s\n", cursor, id))
	}

	session := strings.Builder{}
	if !m.hasRT || m.rt.State == model.SessionDown {
		session.WriteString("(no session)\n")
	} else {
		session.WriteString(fmt.Sprintf("%-12s %-28s %-10s %-8s %s\n", "DEVICE", "TUNNEL", "STATE", "PID", "ERROR"))
		session.WriteString(fmt.Sprintf("%-12s %-28s %-10s %-8d %s\n",
			m.rt.DeviceID, util.EmptyDash(m.rt.TunnelID), m.rt.State, m.rt.PID, util.EmptyDash(m.rt.LastError)))
		if m.rt.State == model.SessionUp {
			for _, f := range m.cfg.Proxy.Forwards {
				session.WriteString(fmt.Sprintf("  %s -> %s:%d\n", f.Service, m.cfg.Proxy.BindAddr, f.Port))
			}
		}
	}

	quickHelp := "Keys: Enter connect | Ctrl+D disconnect | Ctrl+S ssh | Tab pick recent | Esc quit"
	width := m.effectiveWidth()
	layout := lipgloss.JoinVertical(
		lipgloss.Left,
		head,
		subhead,
		quickHelp,
		m.renderPanel("Connect", input.String(), width, lipgloss.Color("39")),
		m.renderPanel("Recent Devices", recent.String(), width, lipgloss.Color("69")),
		m.renderPanel("Session", session.String(), width, lipgloss.Color("63")),
		m.renderPanel("Status", m.status, width, lipgloss.Color("205")),
	)
	if m.errMsg != "" {
		layout = lipgloss.JoinVertical(
			lipgloss.Left,
			layout,
			m.renderPanel("Error", m.errMsg+"\n\nPress Enter to dismiss.", width, lipgloss.Color("196")),
		)
	}
	return layout
}

// Run builds the production stack and starts the dashboard.
func Run() error {
	cfg, err := appconfig.Load()
	if err != nil {
		return err
	}
	if err := localproxy.EnsureProxyBinary(cfg.Proxy); err != nil {
		return err
	}
	ctx := context.Background()
	client, err := directory.NewAWSClient(ctx, cfg.AWS.Profile, cfg.AWS.Region)
	if err != nil {
		return err
	}
	rec := reconcile.New(client, auth.NewRecovery(cfg.AWS.Profile), cfg.Proxy.ServiceNames())
	orch := connect.NewOrchestrator(rec, localproxy.New(cfg.Proxy), client.Region())
	mgr := connect.NewManager(orch)
	_ = mgr.LoadRuntime()

	p := tea.NewProgram(initialModel(cfg, mgr), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func clampRefresh(seconds int) int {
	if seconds <= 0 {
		return util.DefaultRefreshSeconds
	}
	return seconds
}

func (m modelUI) effectiveWidth() int {
	if m.width <= 0 {
		return 100
	}
	return m.width
}

func (m modelUI) renderPanel(title, body string, width int, accent lipgloss.Color) string {
	if width < 24 {
		width = 24
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title)
	content := strings.TrimSuffix(body, "\n")
	panel := strings.TrimSpace(header + "\n" + content)
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(panel)
}
