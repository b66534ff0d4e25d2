// Package builtin implements the Builtin Dispatcher: resolving a command
// name against an in-process built-in table. Grounded on smash's
// builtins/mod.rs (closed table, NotFound sentinel distinguishable via
// errors.Is) and builtins/exit.rs; cd is a permitted no-op stub, since
// changing the process's working directory has no effect this shell
// currently observes.
package builtin

import (
	"github.com/tjper/smash/internal/process"
	"github.com/tjper/smash/internal/validator"
)

// ErrNotFound indicates name does not match any built-in. The Pipeline
// Runner uses errors.Is against this sentinel to decide whether to fall
// through to external execution — never user-visible.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "builtin: not found" }

// Context is the state a built-in may read or mutate.
type Context struct {
	Argv []string
	// Exit is called by the exit built-in to terminate the shell process.
	Exit func(code int)
}

// Builtin is an in-process command. Every Builtin must return
// ExitedWith(code); a built-in has no child process to report as running,
// so a Running status from one is a contract violation.
type Builtin func(ctx *Context) process.ExitStatus

// Lookup resolves name against the closed built-in table. It returns
// (nil, ErrNotFound) for any name outside {"exit", "cd"}.
func Lookup(name string) (Builtin, error) {
	switch name {
	case "exit":
		return runExit, nil
	case "cd":
		return runCd, nil
	default:
		return nil, ErrNotFound
	}
}

// runExit terminates the shell with exit code 0.
func runExit(ctx *Context) process.ExitStatus {
	ctx.Exit(0)
	// Exit does not return under normal operation; this is reached only if
	// ctx.Exit was stubbed out (e.g. in a test).
	return process.ExitedWith(0)
}

// runCd is a stub, dispatched as a built-in rather than falling through to
// PATH lookup. It validates argv (at most one argument, else ExitedWith(1))
// but does not chdir(2).
func runCd(ctx *Context) process.ExitStatus {
	v := validator.New()
	v.Assert(len(ctx.Argv) <= 2, "cd takes at most one argument")
	if err := v.Err(); err != nil {
		return process.ExitedWith(1)
	}
	return process.ExitedWith(0)
}
