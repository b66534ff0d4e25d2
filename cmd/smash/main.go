// Command smash is the shell's process entry point: CLI flag handling, the
// interactive read-eval-print loop, and the startup sequence the Shell's
// state depends on (shell pgid, interactivity, captured terminal
// attributes, signal policy). The command-execution core lives in
// internal/shell and below; this file is thin by design, limited to flag
// parsing and dispatch.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/tjper/smash/internal/log"
	"github.com/tjper/smash/internal/process"
	"github.com/tjper/smash/internal/shell"
	"github.com/tjper/smash/internal/spawner"
)

var logger = log.New(os.Stderr, "smash")

var (
	oneShot string
	norc    bool
)

func main() {
	// The hidden spawn-helper subcommand is intercepted before cobra ever
	// sees argv: it is launched by this same binary's own Process Spawner
	// (internal/spawner), never typed by a user, and must not appear in
	// --help.
	if len(os.Args) > 1 && os.Args[1] == spawner.HelperArg {
		os.Exit(spawner.RunHelper())
	}

	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%s", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smash",
	Short: "A small POSIX job-control shell",
	Args:  cobra.NoArgs,
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&oneShot, "command", "c", "", "run one script and exit, like sh -c")
	rootCmd.Flags().BoolVar(&norc, "norc", false, "accepted for compatibility; no rc file is ever loaded")
}

func run(cmd *cobra.Command, args []string) error {
	sh, err := startup()
	if err != nil {
		return err
	}

	if oneShot != "" {
		os.Exit(exitCode(sh.RunScript(oneShot)))
	}

	repl(sh)
	return nil
}

// startup performs the sequence a script's execution depends on having
// already happened: capture the shell's own pgid, decide interactivity
// from whether stdout is a terminal, ignore the job-control signals in the
// shell process itself (children reset them before exec), and ingest the
// environment.
func startup() (*shell.Shell, error) {
	pgid := unix.Getpgrp()

	interactive := isTerminal(int(os.Stdout.Fd()))
	if interactive {
		// The shell must not itself be stopped or interrupted by the
		// signals it hands to a foreground job's process group.
		signalIgnore()
	}

	self, err := os.Executable()
	if err != nil {
		return nil, err
	}

	return shell.New(shell.Config{
		Interactive: interactive,
		TerminalFd:  int(os.Stdin.Fd()),
		ShellPgid:   pgid,
		SelfExe:     self,
	})
}

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}

func signalIgnore() {
	// SIGCHLD is left at its default disposition; the Reaper observes child
	// state changes by calling wait4 directly, not by handling SIGCHLD.
	signal.Ignore(syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU)
}

// repl is the interactive read-eval-print loop: read one line, run it as a
// script, print nothing extra beyond a minimal fixed prompt.
func repl(sh *shell.Shell) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stdout, "$ ")
		if !scanner.Scan() {
			return
		}
		sh.RunScript(scanner.Text())
	}
}

// exitCode maps a final ExitStatus to a process exit code. A Running status
// here means the job of the script's last pipeline stopped; there is no
// child exit code to report for that case, so 0 is used.
func exitCode(status process.ExitStatus) int {
	if _, running := status.IsRunning(); running {
		return 0
	}
	return status.Code()
}
