// Package boardvm is the module's public API: load a program from source
// and run one of its boards to completion, plus the finer-grained
// stepwise surface (NewRunState / PrepareBoardCalls / Tick / Finalize /
// IsFinished) an interactive stepper drives directly instead of letting
// CallBoard recurse the whole way (spec §2 Public API, §9 "Stepwise API
// for visualisers").
//
// Grounded on the teacher's root-level main.go / cmd/console wiring: a
// thin load-then-run entry point over the packages that do the real work,
// with capability backends selected by the named registries in pkg/ioport
// and pkg/random.
package boardvm

import (
	"log/slog"

	"boardvm/pkg/board"
	"boardvm/pkg/evaluator"
	"boardvm/pkg/ioport"
	"boardvm/pkg/loader"
	"boardvm/pkg/random"
	"boardvm/pkg/runstate"
)

// Config mirrors evaluator.Config plus the Random seed, generalizing the
// reference implementation's process-wide cylindrical/verbosity globals
// into a value a caller constructs explicitly (spec §9 Design notes).
type Config struct {
	Cylindrical bool
	Verbosity   int
	Seed        int64
}

// LoadProgram reads path and its transitive #include graph into a
// runnable Program (spec §2 Public API's load_program).
func LoadProgram(path string, logger *slog.Logger) (*loader.Program, error) {
	return loader.Load(path, logger)
}

// Machine bundles a loaded Program with the evaluator and capabilities
// needed to run its boards, so a CLI or stepper only has to assemble one
// of these per invocation.
type Machine struct {
	Program *loader.Program
	Eval    *evaluator.Evaluator
}

// NewMachine wires a Program to an Evaluator using io for terminal
// capability and a math/rand Source seeded from cfg.Seed (spec §6's
// injected IoPort/Random capabilities). A nil io discards stdout and
// reports no stdin available.
func NewMachine(prog *loader.Program, io ioport.Port, cfg Config, logger *slog.Logger) *Machine {
	if io == nil {
		io = ioport.NewBuffer(nil)
	}
	rnd := random.NewMathRand(cfg.Seed)
	ev := evaluator.New(prog, io, rnd, evaluator.Config{
		Cylindrical: cfg.Cylindrical,
		Verbosity:   cfg.Verbosity,
	}, logger)
	return &Machine{Program: prog, Eval: ev}
}

// CallBoard runs b to completion with the given input values, one per
// declared input label, and returns its aggregated outputs (spec §2
// Public API's call_board(board, inputs) -> outputs).
func (m *Machine) CallBoard(b *board.Board, inputs []byte) (outputs [board.NumLabels]runstate.Marble, left, right runstate.Marble, stdout []byte) {
	return m.Eval.CallBoard(b, inputs)
}

// NewRunState allocates a top-level RunState for b (depth 0) and seeds its
// declared inputs, the first half of spec.md's
// "new_run_state(board, inputs)" for a stepwise caller.
func (m *Machine) NewRunState(b *board.Board, inputs []byte) *runstate.RunState {
	rs := m.Eval.NewRunState(b, 0)
	rs.SeedInputs(inputs)
	return rs
}

// PrepareBoardCalls exposes evaluator.PrepareBoardCalls to a stepper.
func (m *Machine) PrepareBoardCalls(rs *runstate.RunState) {
	m.Eval.PrepareBoardCalls(rs)
}

// Tick exposes evaluator.Tick to a stepper; usePrepared splices whatever
// PrepareBoardCalls most recently staged instead of preparing calls
// itself within the same step.
func (m *Machine) Tick(rs *runstate.RunState, usePrepared bool) {
	m.Eval.Tick(rs, usePrepared)
}

// Finalize exposes evaluator.Finalize to a stepper.
func (m *Machine) Finalize(rs *runstate.RunState) {
	m.Eval.Finalize(rs)
}

// IsFinished exposes evaluator.Evaluator.IsFinished to a stepper.
func (m *Machine) IsFinished(rs *runstate.RunState) bool {
	return m.Eval.IsFinished(rs)
}
