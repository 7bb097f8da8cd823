// Package cli provides the command-line interface for tunnel-manager.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rosterloh/tunnel-manager/internal/appconfig"
	"github.com/rosterloh/tunnel-manager/internal/auth"
	"github.com/rosterloh/tunnel-manager/internal/connect"
	"github.com/rosterloh/tunnel-manager/internal/directory"
	"github.com/rosterloh/tunnel-manager/internal/doctor"
	"github.com/rosterloh/tunnel-manager/internal/events"
	"github.com/rosterloh/tunnel-manager/internal/history"
	"github.com/rosterloh/tunnel-manager/internal/localproxy"
	"github.com/rosterloh/tunnel-manager/internal/model"
	"github.com/rosterloh/tunnel-manager/internal/reconcile"
	"github.com/rosterloh/tunnel-manager/internal/registry"
	"github.com/rosterloh/tunnel-manager/internal/shell"
	"github.com/rosterloh/tunnel-manager/internal/ui"
	"github.com/rosterloh/tunnel-manager/internal/util"
)

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tunnel-manager",
		Short: "Secure tunnel session manager for remote devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run()
		},
	}

	root.AddCommand(
		newConnectCmd(),
		newDisconnectCmd(),
		newStatusCmd(),
		newDevicesCmd(),
		newEventsCmd(),
		newSSHCmd(),
		newDoctorCmd(),
	)
	return root
}

// buildManager wires the production stack: AWS directory client, sso
// login recovery, reconciler, and proxy launcher behind a session
// manager. Restored runtime state lets status/disconnect work across
// CLI invocations.
func buildManager(ctx context.Context, cfg appconfig.Config) (*connect.Manager, error) {
	client, err := directory.NewAWSClient(ctx, cfg.AWS.Profile, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	rec := reconcile.New(client, auth.NewRecovery(cfg.AWS.Profile), cfg.Proxy.ServiceNames())
	orch := connect.NewOrchestrator(rec, localproxy.New(cfg.Proxy), client.Region())
	mgr := connect.NewManager(orch)
	if err := mgr.LoadRuntime(); err != nil {
		slog.Warn("failed to load session runtime", "error", err)
	}
	return mgr, nil
}

// offlineManager builds a manager with no directory client, enough for
// disconnect/status which only operate on persisted local state.
func offlineManager() *connect.Manager {
	mgr := connect.NewManager(nil)
	if err := mgr.LoadRuntime(); err != nil {
		slog.Warn("failed to load session runtime", "error", err)
	}
	return mgr
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <device-id|alias>",
		Short: "Open a tunnel to a device and start the local proxy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			deviceID, err := registry.Resolve(args[0])
			if err != nil {
				return errors.New(connect.UserMessage(err))
			}
			if err := util.ValidateDeviceID(deviceID); err != nil {
				return errors.New(connect.UserMessage(err))
			}
			if err := localproxy.EnsureProxyBinary(cfg.Proxy); err != nil {
				return err
			}

			mgr, err := buildManager(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			rt, err := mgr.Connect(cmd.Context(), deviceID)
			if err != nil {
				return errors.New(connect.UserMessage(err))
			}
			if err := history.Touch(deviceID); err != nil {
				slog.Warn("failed to record device history", "error", err)
			}
			fmt.Printf("connected device=%s tunnel=%s pid=%d\n", rt.DeviceID, rt.TunnelID, rt.PID)
			for _, f := range cfg.Proxy.Forwards {
				fmt.Printf("  %s -> %s:%d\n", f.Service, cfg.Proxy.BindAddr, f.Port)
			}
			return nil
		},
	}
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Terminate the active proxy session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := offlineManager()
			if err := mgr.Disconnect(); err != nil {
				return errors.New(connect.UserMessage(err))
			}
			fmt.Println("disconnected")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := offlineManager()
			rt, ok := mgr.Snapshot()
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if !ok {
					return enc.Encode(struct{}{})
				}
				return enc.Encode(rt)
			}
			if !ok {
				fmt.Println("no session")
				return nil
			}
			fmt.Printf("%-12s %-28s %-12s %-8s %-10s %s\n", "DEVICE", "TUNNEL", "STATE", "PID", "UPTIME(s)", "ERROR")
			fmt.Printf("%-12s %-28s %-12s %-8d %-10d %s\n",
				rt.DeviceID, util.EmptyDash(rt.TunnelID), rt.State, rt.PID, rt.UptimeSec, util.EmptyDash(rt.LastError))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	root := &cobra.Command{Use: "devices", Short: "Manage the local device registry"}

	var recent bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List registered devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devs, err := registry.LoadAll()
			if err != nil {
				return err
			}
			if recent {
				lastUsed, err := history.LastUsed()
				if err != nil {
					return err
				}
				devs = history.SortDevicesRecent(devs, lastUsed)
			}
			fmt.Printf("%-20s %-16s %s\n", "ALIAS", "DEVICE", "NOTES")
			for _, d := range devs {
				fmt.Printf("%-20s %-16s %s\n", d.Alias, d.DeviceID, util.EmptyDash(d.Notes))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&recent, "recent", false, "sort by most recent connection")

	var notes string
	add := &cobra.Command{
		Use:   "add <alias> <device-id>",
		Short: "Register a device under an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registry.Add(args[0], args[1], notes); err != nil {
				return err
			}
			fmt.Printf("added %s -> %s\n", args[0], args[1])
			return nil
		},
	}
	add.Flags().StringVar(&notes, "notes", "", "free-form notes for the device")

	remove := &cobra.Command{
		Use:   "remove <alias>",
		Short: "Remove a device from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registry.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", args[0])
			return nil
		},
	}

	root.AddCommand(list, add, remove)
	return root
}

func newEventsCmd() *cobra.Command {
	var (
		deviceID  string
		eventType string
		sinceArg  string
		limit     int
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the session event journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := events.Query{DeviceID: deviceID, EventType: eventType, Limit: limit}
			if sinceArg != "" {
				d, err := time.ParseDuration(sinceArg)
				if err != nil {
					return fmt.Errorf("invalid --since duration: %w", err)
				}
				q.Since = time.Now().Add(-d)
			}
			evts, err := events.NewStore().Read(q)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(evts)
			}
			fmt.Printf("%-25s %-12s %-28s %-16s %s\n", "TIME", "DEVICE", "TUNNEL", "TYPE", "MESSAGE")
			for _, e := range evts {
				fmt.Printf("%-25s %-12s %-28s %-16s %s\n",
					e.Timestamp.Format(time.RFC3339), util.EmptyDash(e.DeviceID),
					util.EmptyDash(e.TunnelID), e.EventType, util.EmptyDash(e.Message))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceID, "device", "", "filter by device id")
	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&sinceArg, "since", "", "only events newer than this duration (e.g. 2h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the newest N events")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newSSHCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "ssh",
		Short: "Open an interactive SSH session through the active tunnel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shell.EnsureSSHBinary(); err != nil {
				return err
			}
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			port := 0
			for _, f := range cfg.Proxy.Forwards {
				if f.Service == "SSH" {
					port = f.Port
				}
			}
			if port == 0 {
				return fmt.Errorf("no SSH service in proxy.forwards")
			}

			mgr := offlineManager()
			if rt, ok := mgr.Snapshot(); !ok || rt.State != model.SessionUp {
				return errors.New(connect.UserMessage(connect.ErrNoSession))
			}
			return shell.RunInteractive(cmd.Context(), user, port)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "remote user name")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local preflight diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := doctor.Run(connect.NewManager(nil))
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if len(report.Issues) == 0 {
				fmt.Println("no issues found")
				return nil
			}
			for _, issue := range report.Issues {
				fmt.Printf("[%s] %s (%s): %s\n    %s\n",
					issue.Severity, issue.Check, issue.Target, issue.Message, issue.Recommendation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}
