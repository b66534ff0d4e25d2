package terminal

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/tjper/smash/internal/jobs"
	"github.com/tjper/smash/internal/reaper"
)

// openTestTTY returns a controlling-terminal-capable fd for the test, or
// skips: these ioctls require a real tty, which a CI sandbox typically
// lacks.
func openTestTTY(t *testing.T) int {
	t.Helper()
	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		t.Skip("no controlling tty available in this environment")
	}
	t.Cleanup(func() { f.Close() })
	return int(f.Fd())
}

func TestCaptureShellTermiosAndForegroundRoundTrip(t *testing.T) {
	fd := openTestTTY(t)

	pgid := unix.Getpgrp()
	c := New(fd, pgid, reaper.New(jobs.New()))

	if err := c.CaptureShellTermios(); err != nil {
		t.Fatalf("CaptureShellTermios: %s", err)
	}
	if c.ShellTermios() == nil {
		t.Fatal("expected ShellTermios to be captured")
	}

	if err := c.SetForeground(pgid); err != nil {
		t.Fatalf("SetForeground: %s", err)
	}
	got, err := c.Foreground()
	if err != nil {
		t.Fatalf("Foreground: %s", err)
	}
	if got != pgid {
		t.Fatalf("Foreground: actual %d, expected %d", got, pgid)
	}
}
