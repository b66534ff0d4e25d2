// Package pipeline implements the Pipeline Runner: creating an anonymous
// pipe between successive commands, driving the Builtin Dispatcher or
// Process Spawner for each, and handing the resulting job to the Reaper or
// Terminal Controller. The pipes are not connected to any command's stdio;
// every command inherits the shell's stdio. Grounded on smash's eval.rs
// run_pipeline/run_command.
package pipeline

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/tjper/smash/internal/ast"
	"github.com/tjper/smash/internal/builtin"
	ierrors "github.com/tjper/smash/internal/errors"
	"github.com/tjper/smash/internal/expand"
	"github.com/tjper/smash/internal/jobs"
	"github.com/tjper/smash/internal/log"
	"github.com/tjper/smash/internal/process"
	"github.com/tjper/smash/internal/reaper"
	"github.com/tjper/smash/internal/spawner"
	"github.com/tjper/smash/internal/terminal"
)

var logger = log.New(os.Stderr, "pipeline")

// ExitFunc terminates the shell process; wired to the exit built-in.
type ExitFunc func(code int)

// Runner runs one pipeline at a time.
type Runner struct {
	Jobs        *jobs.Registry
	Reaper      *reaper.Reaper
	Terminal    *terminal.Controller
	Spawner     *spawner.Spawner
	Interactive bool
	Exit        ExitFunc
}

// Run spawns each command of pipeline left to right, creating and closing
// an anonymous pipe between successive stages without connecting it to
// either stage's stdio, then either returns the last built-in's
// status or hands the spawned job to the non-interactive blocking wait
// path or the interactive foreground path.
func (r *Runner) Run(sourceText string, p ast.Pipeline, background bool) (process.ExitStatus, error) {
	var (
		pids       []int
		pgid       int
		lastStatus = process.ExitedWith(0)
	)

	for i, cmd := range p.Commands {
		last := i == len(p.Commands)-1

		var readEnd, writeEnd *os.File
		if !last {
			var err error
			readEnd, writeEnd, err = os.Pipe()
			if err != nil {
				return process.ExitStatus{}, ierrors.WithStack(err)
			}
		}

		argv := expand.Words(cmd.Argv)
		if len(argv) == 0 {
			// An empty expanded argv is a no-op; it still becomes the
			// pipeline's result if it is the last command.
			closeIfSet(readEnd)
			closeIfSet(writeEnd)
			lastStatus = process.ExitedWith(0)
			continue
		}

		status, ranBuiltin, err := r.runCommand(process.Context{
			Pgid:        pgid,
			Background:  background,
			Interactive: r.Interactive,
		}, argv)

		// Pipe endpoints are the intended substrate for wiring child stdio;
		// this core's spawner inherits the shell's stdio instead, so both
		// ends are released once the stage has launched.
		closeIfSet(writeEnd)
		closeIfSet(readEnd)

		if err != nil {
			return process.ExitStatus{}, err
		}
		lastStatus = status

		if ranBuiltin {
			continue
		}

		pid, running := status.IsRunning()
		if !running {
			// PATH miss or exec failure before any process existed; later
			// stages of the pipeline, if any, still launch (matching
			// smash's run_pipeline, which does not short-circuit on a
			// non-Err command result).
			continue
		}

		if pgid == 0 {
			pgid = pid
		}
		if r.Interactive {
			if err := syscall.Setpgid(pid, pgid); err != nil && !ierrors.Is(err, syscall.ESRCH) {
				logger.Warnf("parent-side setpgid backstop; pid=%d pgid=%d error=%s", pid, pgid, err)
			}
		}
		pids = append(pids, pid)
	}

	if _, running := lastStatus.IsRunning(); !running {
		// The last command in the pipeline was a built-in, a no-op, or
		// failed to spawn: that result is the pipeline's result regardless
		// of what earlier stages did.
		return lastStatus, nil
	}

	if len(pids) == 0 {
		return process.ExitedWith(0), nil
	}

	job := r.Jobs.Create(sourceText, pgid, pids)

	if !r.Interactive {
		state, err := r.Reaper.WaitForJob(job)
		if err != nil {
			return process.ExitStatus{}, err
		}
		if code, ok := state.IsCompleted(); ok {
			return process.ExitedWith(code), nil
		}
		return process.RunningPid(pgid), nil
	}

	r.Jobs.SetLastForeground(job.ID)
	state, err := r.Terminal.RunInForeground(job)
	if err != nil {
		return process.ExitStatus{}, err
	}
	if code, ok := state.IsCompleted(); ok {
		return process.ExitedWith(code), nil
	}
	return process.RunningPid(pgid), nil
}

// runCommand dispatches a single command: built-ins run in-process; any
// other name falls through to the Process Spawner.
func (r *Runner) runCommand(ctx process.Context, argv []string) (status process.ExitStatus, ranBuiltin bool, err error) {
	b, lookupErr := builtin.Lookup(argv[0])
	if lookupErr == nil {
		result := b(&builtin.Context{Argv: argv, Exit: r.Exit})
		if _, running := result.IsRunning(); running {
			return process.ExitStatus{}, false, ierrors.New("pipeline: builtin returned a Running status")
		}
		return result, true, nil
	}
	if !ierrors.Is(lookupErr, builtin.ErrNotFound) {
		return process.ExitStatus{}, false, lookupErr
	}

	var shellTermios *unix.Termios
	if r.Interactive {
		shellTermios = r.Terminal.ShellTermios()
	}
	status, err = r.Spawner.Spawn(ctx, argv, shellTermios)
	return status, false, err
}

func closeIfSet(f *os.File) {
	if f != nil {
		f.Close()
	}
}
