// Package shell opens an interactive SSH session to a device through the
// local end of an established tunnel.
//
// It does not implement the SSH protocol; it shells out to the system
// "ssh" binary pointed at the tunneled local port, so the user's keys and
// ssh config apply unchanged. A PTY is allocated because an interactive
// session needs a terminal for prompts, line editing, and resizing.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/creack/pty"
)

// EnsureSSHBinary checks that the "ssh" binary is available on PATH,
// so the ssh subcommand fails with a clear message up front.
func EnsureSSHBinary() error {
	if _, err := exec.LookPath("ssh"); err != nil {
		return fmt.Errorf("ssh binary not found in PATH")
	}
	return nil
}

// Command builds the ssh invocation for the tunneled port without
// starting it. Host key checking is pinned off for the loopback hop: the
// "host" at 127.0.0.1 changes identity with every device the tunnel
// points at.
func Command(user string, port int) *exec.Cmd {
	args := []string{
		"-p", fmt.Sprintf("%d", port),
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	}
	target := "127.0.0.1"
	if user != "" {
		target = user + "@" + target
	}
	args = append(args, target)
	return exec.Command("ssh", args...)
}

// RunInteractive connects the user's terminal to an SSH session on the
// tunneled local port and blocks until the session ends. If ctx is
// cancelled while the session is active, the SSH process is killed.
func RunInteractive(ctx context.Context, user string, port int) error {
	cmd := Command(user, port)

	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// Keystrokes into the PTY master; remote output back out. The copy
	// goroutine ends when the PTY closes after process exit.
	go func() {
		_, _ = io.Copy(f, os.Stdin)
	}()
	_, _ = io.Copy(os.Stdout, f)

	if ctx.Err() != nil {
		_ = cmd.Process.Kill()
	}
	return cmd.Wait()
}
