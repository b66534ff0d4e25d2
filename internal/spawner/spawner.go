// Package spawner implements the Process Spawner: resolving argv[0] against
// PATH, forking, and installing the per-child process-group and signal
// policy a job-control shell needs in place before execv.
//
// os/exec has no pre-exec hook (unlike e.g. Python's subprocess's
// preexec_fn), so resetting signal dispositions between fork and exec is
// not directly expressible with it. This package resolves that the way the
// teacher resolves an analogous problem (getting a child into a cgroup
// before its real command starts, internal/jobworker/reexec in the
// teacher): it never execs the target directly in interactive mode. It
// execs *itself* with a hidden subcommand (HelperArg) and a pipe carrying a
// spawnRequest; the helper — a fresh process image whose dispositions
// survived its own exec unchanged per POSIX (only caught signals reset on
// exec, not ignored ones) — resets the six job-control signals to default
// and execs the real target.
package spawner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	ierrors "github.com/tjper/smash/internal/errors"
	"github.com/tjper/smash/internal/log"
	"github.com/tjper/smash/internal/path"
	"github.com/tjper/smash/internal/process"
)

// HelperArg is the hidden subcommand argument cmd/smash recognizes before
// doing any flag parsing, dispatching straight to RunHelper.
const HelperArg = "__spawn-helper__"

var logger = log.New(os.Stderr, "spawner")

// jobControlSignals are caught in the helper just before the real target is
// exec'd, so the target starts with their default disposition.
var jobControlSignals = []os.Signal{
	syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP,
	syscall.SIGTTIN, syscall.SIGTTOU, syscall.SIGCHLD,
}

// Spawner resolves and launches external commands.
type Spawner struct {
	paths   *path.Table
	selfExe string
}

// New creates a Spawner resolving commands against paths. selfExe is this
// binary's own executable path (os.Executable()), cached once so every
// interactive spawn doesn't re-resolve it.
func New(paths *path.Table, selfExe string) *Spawner {
	return &Spawner{paths: paths, selfExe: selfExe}
}

// spawnRequest is what the parent writes down the helper pipe: enough for
// the helper to finish job-control setup and exec the real target.
type spawnRequest struct {
	Path    string
	Argv    []string
	Termios *unix.Termios // nil when backgrounded or non-interactive
}

// Spawn resolves argv[0] and launches it. On a PATH miss it prints
// `command not found `<name>`` and returns ExitedWith(1) without forking.
// On success it returns Running(pid).
func (s *Spawner) Spawn(ctx process.Context, argv []string, shellTermios *unix.Termios) (process.ExitStatus, error) {
	resolved, ok := s.resolve(argv[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "command not found `%s`\n", argv[0])
		return process.ExitedWith(1), nil
	}

	// traceID correlates the parent's log lines for this one command launch
	// ("spawning", then "spawned" or "spawned via helper") — there is no
	// pid to key on until after fork. The helper itself does not log it.
	traceID := uuid.NewString()
	logger.Infof("spawning; trace=%s argv=%v interactive=%t", traceID, argv, ctx.Interactive)

	if !ctx.Interactive {
		return s.spawnDirect(traceID, resolved, argv)
	}
	return s.spawnViaHelper(traceID, ctx, resolved, argv, shellTermios)
}

// resolve handles PATH lookup: a name starting with `/` or `./` is used
// as-is; otherwise it is looked up in PATH.
func (s *Spawner) resolve(name string) (string, bool) {
	if len(name) > 0 && (name[0] == '/' || (len(name) > 1 && name[0] == '.' && name[1] == '/')) {
		return name, true
	}
	return s.paths.Lookup(name)
}

// spawnDirect execs the resolved path directly, for non-interactive
// launches where no pgid/terminal/signal policy applies.
func (s *Spawner) spawnDirect(traceID, resolved string, argv []string) (process.ExitStatus, error) {
	cmd := exec.Command(resolved, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Start(); err != nil {
		return execFailure(resolved, err)
	}
	logger.Infof("spawned; trace=%s pid=%d", traceID, cmd.Process.Pid)
	return process.RunningPid(cmd.Process.Pid), nil
}

// spawnViaHelper launches the hidden spawn-helper subcommand with
// SysProcAttr covering setpgid/tcsetpgrp (fields the Go runtime itself
// performs between fork and exec), then hands the helper the real target
// and — when not backgrounded — the shell's terminal attributes to restore,
// over a pipe.
func (s *Spawner) spawnViaHelper(traceID string, ctx process.Context, resolved string, argv []string, shellTermios *unix.Termios) (process.ExitStatus, error) {
	pipeRead, pipeWrite, err := os.Pipe()
	if err != nil {
		return process.ExitStatus{}, ierrors.WithStack(err)
	}

	cmd := exec.Command(s.selfExe, HelperArg)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.ExtraFiles = []*os.File{pipeRead}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:    true,
		Pgid:       ctx.Pgid,
		Foreground: !ctx.Background,
		Ctty:       0,
	}

	req := spawnRequest{Path: resolved, Argv: argv}
	if !ctx.Background {
		req.Termios = shellTermios
	}
	payload, err := json.Marshal(req)
	if err != nil {
		pipeRead.Close()
		pipeWrite.Close()
		return process.ExitStatus{}, ierrors.WithStack(err)
	}

	if err := cmd.Start(); err != nil {
		pipeRead.Close()
		pipeWrite.Close()
		return execFailure(resolved, err)
	}
	// The helper has its own copy of pipeRead (fd 3); the parent's is no
	// longer needed and must be closed so the helper sees EOF after the
	// write below.
	pipeRead.Close()

	go func() {
		defer pipeWrite.Close()
		if _, err := pipeWrite.Write(payload); err != nil {
			logger.Errorf("writing spawn request; trace=%s error: %s", traceID, err)
		}
	}()

	logger.Infof("spawned via helper; trace=%s helper_pid=%d", traceID, cmd.Process.Pid)
	return process.RunningPid(cmd.Process.Pid), nil
}

func execFailure(resolved string, err error) (process.ExitStatus, error) {
	if ierrors.Is(err, os.ErrPermission) {
		fmt.Fprintf(os.Stderr, "Failed to exec %s (EACCESS). chmod(1) may help.\n", resolved)
	} else {
		fmt.Fprintf(os.Stderr, "Failed to exec %s (%s)\n", resolved, err)
	}
	return process.ExitedWith(1), nil
}

// RunHelper is cmd/smash's entry point for the HelperArg subcommand. It
// reads the spawnRequest from fd 3, resets job-control signal dispositions,
// restores the shell's terminal attributes if provided, and execs the real
// target. It never returns on success; on failure it prints a diagnostic
// and returns 1.
func RunHelper() int {
	fd3 := os.NewFile(3, "spawn-request")
	if fd3 == nil {
		fmt.Fprintln(os.Stderr, "smash: spawn helper invoked without a request pipe")
		return 1
	}
	defer fd3.Close()

	b, err := io.ReadAll(fd3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smash: reading spawn request: %s\n", err)
		return 1
	}
	var req spawnRequest
	if err := json.Unmarshal(b, &req); err != nil {
		fmt.Fprintf(os.Stderr, "smash: decoding spawn request: %s\n", err)
		return 1
	}

	// setpgid and, for a foreground launch, tcsetpgrp already happened in
	// the parent's SysProcAttr before this process's own image started;
	// nothing left to do for pgid/terminal ownership.
	if req.Termios != nil {
		if err := unix.IoctlSetTermios(0, unix.TCSETS, req.Termios); err != nil {
			fmt.Fprintf(os.Stderr, "smash: restoring terminal attributes: %s\n", err)
		}
	}

	// signal.Reset would leave an inherited SIG_IGN in place, so the signals
	// are caught here instead: execve resets every caught signal to SIG_DFL.
	signal.Notify(make(chan os.Signal, 1), jobControlSignals...)

	err = syscall.Exec(req.Path, req.Argv, os.Environ())
	switch {
	case err == syscall.EACCES:
		fmt.Fprintf(os.Stderr, "Failed to exec %s (EACCESS). chmod(1) may help.\n", req.Path)
	default:
		fmt.Fprintf(os.Stderr, "Failed to exec %s (%s)\n", req.Path, err)
	}
	return 1
}
