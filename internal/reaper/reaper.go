// Package reaper translates kernel child-status events into Job Registry
// state transitions. Grounded on smash's process.rs wait_for_any_process/
// wait_for_job and the golang.org/x/sys/unix.Wait4 idiom used by the pack's
// canonical/pebble reaper.
package reaper

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	ierrors "github.com/tjper/smash/internal/errors"
	"github.com/tjper/smash/internal/jobs"
	"github.com/tjper/smash/internal/log"
	"github.com/tjper/smash/internal/process"
)

var logger = log.New(os.Stderr, "reaper")

// Reaper reaps child processes and records their state transitions in a
// jobs.Registry.
type Reaper struct {
	registry *jobs.Registry
}

// New creates a Reaper bound to registry.
func New(registry *jobs.Registry) *Reaper {
	return &Reaper{registry: registry}
}

// WaitAny invokes waitpid(2) (via wait4) in "untraced" mode (report stopped
// children), and in "no-hang" mode when noBlock is true. It translates the
// outcome into a process.State and records it in the registry. It returns
// the pid that changed state, or 0 with no error when there was nothing to
// report (no_block's "still alive", or "no children").
//
// Any other wait4 outcome means the kernel reported a child status this
// shell has no interpretation for — a contract violation with no recovery
// path, not an ordinary operation failure — so it logs and terminates the
// process rather than surfacing as an error a caller might catch and
// continue past.
func (r *Reaper) WaitAny(noBlock bool) (pid int, err error) {
	flags := unix.WUNTRACED
	if noBlock {
		flags |= unix.WNOHANG
	}

	var status unix.WaitStatus
	got, err := unix.Wait4(-1, &status, flags, nil)
	if err == unix.ECHILD {
		return 0, nil
	}
	if err != nil {
		return 0, ierrors.WithStack(err)
	}
	if got == 0 {
		// WNOHANG: no state change is ready yet.
		return 0, nil
	}

	var state process.State
	switch {
	case status.Exited():
		state = process.Completed(status.ExitStatus())
		logger.Infof("exited: pid=%d status=%d", got, status.ExitStatus())
	case status.Signaled():
		state = process.Completed(-1)
		logger.Infof("killed by signal: pid=%d signal=%s", got, status.Signal())
	case status.Stopped():
		state = process.Stopped(got)
		logger.Infof("stopped: pid=%d signal=%s", got, status.StopSignal())
	default:
		logger.Fatalf("unexpected waitpid status for pid=%d: %+v", got, status)
		return 0, nil // unreachable: Fatalf terminates the process
	}

	r.registry.SetState(got, state)
	return got, nil
}

// WaitForJob blocks, repeatedly calling WaitAny(false), until every process
// of job is either Completed or Stopped. It then inspects the last
// process's state: if Completed, the job is destroyed and the Completed
// state returned; if Stopped, a "[id] Stopped: text" diagnostic is printed
// to stderr and the job remains registered.
func (r *Reaper) WaitForJob(job *jobs.Job) (process.State, error) {
	settled := func() bool {
		for _, pid := range job.Processes {
			s, ok := r.registry.State(pid)
			if !ok {
				return false
			}
			if _, done := s.IsCompleted(); !done && !s.IsStopped() {
				return false
			}
		}
		return true
	}
	for !settled() {
		if _, err := r.WaitAny(false); err != nil {
			return process.State{}, err
		}
	}

	state, ok := r.registry.LastState(job.ID)
	if !ok {
		return process.State{}, ierrors.New("reaper: job has no tracked processes")
	}

	if _, completed := state.IsCompleted(); completed {
		r.registry.Destroy(job.ID)
		return state, nil
	}

	fmt.Fprintf(os.Stderr, "[%d] Stopped: %s\n", job.ID, job.CommandText)
	return state, nil
}
