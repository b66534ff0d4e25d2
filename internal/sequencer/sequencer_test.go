package sequencer

import (
	"testing"

	"github.com/tjper/smash/internal/ast"
	"github.com/tjper/smash/internal/process"
)

// fakeRunner records every pipeline it was asked to run and returns a
// scripted status per call, in order.
type fakeRunner struct {
	statuses []process.ExitStatus
	calls    int
	ran      []string
}

func (f *fakeRunner) Run(sourceText string, p ast.Pipeline, background bool) (process.ExitStatus, error) {
	f.ran = append(f.ran, sourceText)
	s := f.statuses[f.calls]
	f.calls++
	return s, nil
}

func pipeline(runIf ast.RunIf, label string) ast.Pipeline {
	return ast.Pipeline{RunIf: runIf, Commands: []ast.Command{{Argv: []ast.Word{{Literal: label}}}}}
}

func TestEvaluateSuccessGate(t *testing.T) {
	tree := &ast.Ast{Terms: []ast.Term{{
		Code: "true && echo ok",
		Pipelines: []ast.Pipeline{
			pipeline(ast.Always, "true"),
			pipeline(ast.Success, "echo"),
		},
	}}}
	runner := &fakeRunner{statuses: []process.ExitStatus{process.ExitedWith(0), process.ExitedWith(0)}}

	status, err := Evaluate(tree, runner)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(runner.ran) != 2 {
		t.Fatalf("expected both pipelines to run, ran %d", len(runner.ran))
	}
	if status.Code() != 0 {
		t.Fatalf("expected final status 0, got %v", status)
	}
}

func TestEvaluateSuccessGateSkipsOnFailure(t *testing.T) {
	tree := &ast.Ast{Terms: []ast.Term{{
		Code: "false && echo no",
		Pipelines: []ast.Pipeline{
			pipeline(ast.Always, "false"),
			pipeline(ast.Success, "echo"),
		},
	}}}
	runner := &fakeRunner{statuses: []process.ExitStatus{process.ExitedWith(1)}}

	status, err := Evaluate(tree, runner)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(runner.ran) != 1 {
		t.Fatalf("expected only the first pipeline to run, ran %d", len(runner.ran))
	}
	if status.Code() != 1 {
		t.Fatalf("expected status to remain 1, got %v", status)
	}
}

func TestEvaluateFailureGateRunsOnNonzero(t *testing.T) {
	tree := &ast.Ast{Terms: []ast.Term{{
		Code: "false || echo yes",
		Pipelines: []ast.Pipeline{
			pipeline(ast.Always, "false"),
			pipeline(ast.Failure, "echo"),
		},
	}}}
	runner := &fakeRunner{statuses: []process.ExitStatus{process.ExitedWith(1), process.ExitedWith(0)}}

	status, err := Evaluate(tree, runner)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(runner.ran) != 2 {
		t.Fatalf("expected both pipelines to run, ran %d", len(runner.ran))
	}
	if status.Code() != 0 {
		t.Fatalf("expected final status 0, got %v", status)
	}
}

func TestEvaluateFailureGateDoesNotMatchRunning(t *testing.T) {
	tree := &ast.Ast{Terms: []ast.Term{{
		Code: "sleep 1 & echo after",
		Pipelines: []ast.Pipeline{
			pipeline(ast.Always, "sleep"),
			pipeline(ast.Failure, "echo"),
		},
	}}}
	runner := &fakeRunner{statuses: []process.ExitStatus{process.RunningPid(123)}}

	status, err := Evaluate(tree, runner)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(runner.ran) != 1 {
		t.Fatalf("expected the Failure-gated pipeline to be skipped after a Running status, ran %d", len(runner.ran))
	}
	if pid, running := status.IsRunning(); !running || pid != 123 {
		t.Fatalf("expected final status to remain Running(123), got %v", status)
	}
}

func TestEvaluateAlwaysRunsAfterRunning(t *testing.T) {
	tree := &ast.Ast{Terms: []ast.Term{{
		Code: "sleep 1 & echo always",
		Pipelines: []ast.Pipeline{
			pipeline(ast.Always, "sleep"),
			pipeline(ast.Always, "echo"),
		},
	}}}
	runner := &fakeRunner{statuses: []process.ExitStatus{process.RunningPid(123), process.ExitedWith(0)}}

	status, err := Evaluate(tree, runner)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(runner.ran) != 2 {
		t.Fatalf("expected an Always pipeline to run regardless of the prior Running status, ran %d", len(runner.ran))
	}
	if status.Code() != 0 {
		t.Fatalf("expected final status 0, got %v", status)
	}
}

func TestEvaluateNoPipelinesRanReturnsZero(t *testing.T) {
	tree := &ast.Ast{}
	runner := &fakeRunner{}

	status, err := Evaluate(tree, runner)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if status.Code() != 0 {
		t.Fatalf("expected ExitedWith(0), got %v", status)
	}
}
