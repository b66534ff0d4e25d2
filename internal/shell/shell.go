// Package shell wires the core's components into the single entry point
// exposed upward: RunScript(sourceText) -> ExitStatus. It holds the
// process-wide shell state and owns the external collaborators this core
// provides minimal stand-ins for (parser, word expansion, PATH,
// environment).
package shell

import (
	"os"

	"github.com/tjper/smash/internal/env"
	ierrors "github.com/tjper/smash/internal/errors"
	"github.com/tjper/smash/internal/jobs"
	"github.com/tjper/smash/internal/log"
	"github.com/tjper/smash/internal/parser"
	"github.com/tjper/smash/internal/path"
	"github.com/tjper/smash/internal/pipeline"
	"github.com/tjper/smash/internal/process"
	"github.com/tjper/smash/internal/reaper"
	"github.com/tjper/smash/internal/sequencer"
	"github.com/tjper/smash/internal/spawner"
	"github.com/tjper/smash/internal/terminal"
)

var logger = log.New(os.Stderr, "shell")

// Shell holds the process-wide shell state and drives a script through the
// Term Sequencer and Pipeline Runner.
type Shell struct {
	Interactive bool
	ShellPgid   int

	Paths *path.Table
	Env   *env.Store

	Jobs     *jobs.Registry
	Reaper   *reaper.Reaper
	Terminal *terminal.Controller
	Spawner  *spawner.Spawner
	runner   *pipeline.Runner

	lastStatus process.ExitStatus
}

// Config collects what New needs to assemble a Shell.
type Config struct {
	// Interactive mirrors whether standard output is a terminal. The caller
	// (cmd/smash) determines this with an isatty check before constructing
	// the Shell.
	Interactive bool
	// TerminalFd is the file descriptor job-control ioctls are issued
	// against, typically os.Stdin.Fd(). Unused when !Interactive.
	TerminalFd int
	// ShellPgid is the shell's own process-group id, captured at startup via
	// getpgrp(2).
	ShellPgid int
	// SelfExe is this binary's own executable path, passed through to the
	// Process Spawner for the interactive spawn-helper re-exec.
	SelfExe string
}

// New assembles a Shell and its component graph. When cfg.Interactive, it
// captures the shell's terminal attributes before returning, so an
// interactive Shell always has something to restore once a foreground job
// gives up the terminal.
func New(cfg Config) (*Shell, error) {
	paths := path.New()
	envStore := env.New(paths)
	envStore.LoadEnviron()

	registry := jobs.New()
	r := reaper.New(registry)

	var termCtl *terminal.Controller
	if cfg.Interactive {
		termCtl = terminal.New(cfg.TerminalFd, cfg.ShellPgid, r)
		if err := termCtl.CaptureShellTermios(); err != nil {
			return nil, err
		}
	}

	sp := spawner.New(paths, cfg.SelfExe)

	s := &Shell{
		Interactive: cfg.Interactive,
		ShellPgid:   cfg.ShellPgid,
		Paths:       paths,
		Env:         envStore,
		Jobs:        registry,
		Reaper:      r,
		Terminal:    termCtl,
		Spawner:     sp,
		lastStatus:  process.ExitedWith(0),
	}
	s.runner = &pipeline.Runner{
		Jobs:        registry,
		Reaper:      r,
		Terminal:    termCtl,
		Spawner:     sp,
		Interactive: cfg.Interactive,
		Exit:        s.exit,
	}
	return s, nil
}

// RunScript parses source via the external parser collaborator, returns
// ExitedWith(0) on an empty script and ExitedWith(-1) on a parse error,
// and otherwise evaluates the resulting AST through the Term Sequencer and
// returns the last pipeline's status.
func (s *Shell) RunScript(source string) process.ExitStatus {
	tree, err := parser.Parse(source)
	switch {
	case ierrors.Is(err, parser.ErrEmpty):
		return process.ExitedWith(0)
	case err != nil:
		var fatal parser.FatalError
		if ierrors.As(err, &fatal) {
			logger.Warnf("parse error: %s", fatal)
			s.lastStatus = process.ExitedWith(-1)
			return s.lastStatus
		}
		logger.Errorf("unexpected parser error: %s", err)
		s.lastStatus = process.ExitedWith(-1)
		return s.lastStatus
	}

	status, err := sequencer.Evaluate(tree, s.runner)
	if err != nil {
		logger.Errorf("evaluating script: %s", err)
		s.lastStatus = process.ExitedWith(-1)
		return s.lastStatus
	}
	s.lastStatus = status
	return status
}

// LastStatus returns the exit status of the most recently run pipeline.
func (s *Shell) LastStatus() process.ExitStatus { return s.lastStatus }

// exit is wired to the Builtin Dispatcher's exit built-in.
func (s *Shell) exit(code int) {
	os.Exit(code)
}
