// Package terminal implements the Terminal Controller: transferring
// ownership of the controlling terminal between the shell and a foreground
// job, and snapshotting/restoring terminal attributes. Grounded on smash's
// process.rs set_terminal_process_group/restore_terminal_attrs/
// run_in_foreground. golang.org/x/sys/unix is used because neither the
// stdlib nor golang.org/x/term expose tcsetpgrp/tcgetpgrp.
package terminal

import (
	"golang.org/x/sys/unix"

	ierrors "github.com/tjper/smash/internal/errors"
	"github.com/tjper/smash/internal/jobs"
	"github.com/tjper/smash/internal/process"
	"github.com/tjper/smash/internal/reaper"
)

// Controller owns the stdin file descriptor used for job control ioctls and
// the shell's own pgid/termios, captured once at startup.
type Controller struct {
	fd           int
	shellPgid    int
	shellTermios *unix.Termios
	reaper       *reaper.Reaper
}

// New creates a Controller that performs job-control ioctls against fd
// (typically os.Stdin.Fd()) on behalf of shellPgid.
func New(fd int, shellPgid int, r *reaper.Reaper) *Controller {
	return &Controller{fd: fd, shellPgid: shellPgid, reaper: r}
}

// CaptureShellTermios snapshots the current terminal attributes as the
// shell's own, to be restored every time a foreground job returns control.
// Callers only mark the shell interactive once this has succeeded, since an
// interactive shell with no captured attributes would have nothing to
// restore.
func (c *Controller) CaptureShellTermios() error {
	t, err := unix.IoctlGetTermios(c.fd, unix.TCGETS)
	if err != nil {
		return ierrors.WithStack(err)
	}
	c.shellTermios = t
	return nil
}

// ShellTermios returns the captured shell terminal attributes, or nil if
// CaptureShellTermios has not been called.
func (c *Controller) ShellTermios() *unix.Termios { return c.shellTermios }

// SetForeground transfers the controlling terminal to pgid via tcsetpgrp.
func (c *Controller) SetForeground(pgid int) error {
	if err := unix.IoctlSetPointerInt(c.fd, unix.TIOCSPGRP, pgid); err != nil {
		return ierrors.WithStack(err)
	}
	return nil
}

// Foreground returns the pgid currently owning the controlling terminal.
func (c *Controller) Foreground() (int, error) {
	pgid, err := unix.IoctlGetInt(c.fd, unix.TIOCGPGRP)
	if err != nil {
		return 0, ierrors.WithStack(err)
	}
	return pgid, nil
}

// restoreAttrs applies t via tcsetattr(TCSADRAIN).
func (c *Controller) restoreAttrs(t *unix.Termios) error {
	if err := unix.IoctlSetTermios(c.fd, unix.TCSETSW, t); err != nil {
		return ierrors.WithStack(err)
	}
	return nil
}

// RunInForeground hands the terminal to job.Pgid, waits for the job,
// snapshots its terminal attributes, reclaims the terminal for the shell,
// and restores the shell's attributes. After this returns, the controlling
// pgid is shellPgid and the attributes equal the shell's, whether the job
// ran to completion or stopped.
func (c *Controller) RunInForeground(job *jobs.Job) (process.State, error) {
	if err := c.SetForeground(job.Pgid); err != nil {
		return process.State{}, err
	}

	state, err := c.reaper.WaitForJob(job)
	if err != nil {
		return process.State{}, err
	}

	current, terr := unix.IoctlGetTermios(c.fd, unix.TCGETS)
	if terr != nil {
		return process.State{}, ierrors.WithStack(terr)
	}
	job.SetSavedTermios(current)

	if err := c.SetForeground(c.shellPgid); err != nil {
		return process.State{}, err
	}
	if err := c.restoreAttrs(c.shellTermios); err != nil {
		return process.State{}, err
	}

	return state, nil
}
