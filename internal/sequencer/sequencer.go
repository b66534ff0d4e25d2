// Package sequencer implements the Term Sequencer: running the pipelines of
// a term in order, gating each on the previous run pipeline's status per its
// RunIf. Grounded on smash's eval.rs run_terms/run_pipelines.
package sequencer

import (
	"fmt"

	"github.com/tjper/smash/internal/ast"
	"github.com/tjper/smash/internal/process"
	"github.com/tjper/smash/internal/validator"
)

// PipelineRunner runs a single pipeline and returns its resulting status.
// internal/pipeline.Runner satisfies this.
type PipelineRunner interface {
	Run(sourceText string, p ast.Pipeline, background bool) (process.ExitStatus, error)
}

// Evaluate runs every term of the script in order, and within each term
// every pipeline gated by RunIf against the status of the most recently run
// pipeline. A skipped pipeline does not change lastStatus. A Running status
// (a pipeline whose job stopped) matches neither Success nor Failure,
// so only an Always-gated pipeline runs next.
//
// The returned status is that of the last pipeline that actually ran,
// across every term; ExitedWith(0) if the script ran no pipelines at all.
func Evaluate(tree *ast.Ast, runner PipelineRunner) (process.ExitStatus, error) {
	status := process.ExitedWith(0)
	for _, term := range tree.Terms {
		for _, pipeline := range term.Pipelines {
			if !shouldRun(pipeline.RunIf, status) {
				continue
			}
			if err := accept(pipeline); err != nil {
				return process.ExitStatus{}, err
			}
			s, err := runner.Run(term.Code, pipeline, term.Background)
			if err != nil {
				return process.ExitStatus{}, err
			}
			status = s
		}
	}
	return status, nil
}

// accept rejects a pipeline shape this sequencer cannot run, the way a
// parser might one day hand down a command variant beyond the simple
// argv-only one modeled here. It rejects a pipeline with no commands and a
// Command whose Argv is nil; every pipeline internal/parser produces passes.
// It gives a future additional Command variant a single place to be
// rejected instead of a scattered check wherever a pipeline is consumed.
func accept(p ast.Pipeline) error {
	v := validator.New()
	v.Assert(len(p.Commands) > 0, "pipeline has no commands")
	for _, cmd := range p.Commands {
		v.Assert(cmd.Argv != nil, "unsupported command variant: no argv")
	}
	if err := v.Err(); err != nil {
		return fmt.Errorf("sequencer: %w", err)
	}
	return nil
}

// shouldRun implements the RunIf gating table: Always runs unconditionally,
// Success/Failure run only against a completed, non-running last status.
func shouldRun(runIf ast.RunIf, last process.ExitStatus) bool {
	switch runIf {
	case ast.Always:
		return true
	case ast.Success:
		_, running := last.IsRunning()
		return !running && last.Code() == 0
	case ast.Failure:
		_, running := last.IsRunning()
		return !running && last.Code() != 0
	default:
		return false
	}
}
