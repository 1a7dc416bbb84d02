// Package runstate implements the per-invocation mutable evaluator state
// described in spec §3 RunState: double-buffered marble planes, per-column
// stdout staging, sticky output-fill tracking, and the nested child run
// states a stepwise board-call protocol needs.
//
// Grounded on the teacher's CPU struct (pkg/cpu/cpu.go): a handful of
// fixed-size array fields mutated in place by Step, never reallocated
// across ticks.
package runstate

import "boardvm/pkg/board"

// Marble is a packed nullable byte: Occupied distinguishes an absent
// marble from one whose Value happens to be zero (spec §3's "packed
// 16-bit cell value" invariant, represented here as two fields rather than
// a literal bitfield since Go has no use for the packing itself).
type Marble struct {
	Occupied bool
	Value    byte
}

// Set occupies the marble with v.
func (m *Marble) Set(v byte) {
	m.Occupied = true
	m.Value = v
}

// Clear empties the marble.
func (m *Marble) Clear() {
	*m = Marble{}
}

// RunState is the mutable evaluator state for one in-flight board
// invocation.
type RunState struct {
	Board   *board.Board
	Program BoardIndexer
	Indents uint32
	Tick    uint32

	Cur, Next []Marble

	StdoutStaging []Marble

	OutputsFilled [board.NumLabels]bool
	LeftFilled    bool
	RightFilled   bool
	// NoOutput is true iff the board declares no outputs at all; the
	// termination policy in spec §4.5 treats such boards as running
	// until inactivity alone, since "all outputs filled" is vacuously
	// true and must not end the run on tick 1.
	NoOutput bool

	MarblesMoved      bool
	TerminatorReached bool

	Outputs     [board.NumLabels]Marble
	OutputLeft  Marble
	OutputRight Marble

	// Prepared holds child RunStates created by PrepareBoardCalls but not
	// yet advanced; Processed holds their finalized results once spliced,
	// until Tick clears it at the start of the next tick. Both exist to
	// let a stepwise UI pause between "a sub-board was invoked" and "its
	// result flows back" (spec §9).
	Prepared  []*Call
	Processed []*Call

	StdoutText []byte
}

// BoardIndexer resolves a BoardCall's BoardIndex to its *board.Board,
// implemented by loader.Program. It is an interface (not a direct
// dependency on pkg/loader) so pkg/runstate and pkg/evaluator never import
// the loader.
type BoardIndexer interface {
	BoardAt(index int) *board.Board
}

// Call is one in-flight nested invocation created by PrepareBoardCalls: the
// host call site it serves, and the child RunState carrying out the
// callee's execution.
type Call struct {
	Site  board.BoardCall
	Child *RunState
}

// New allocates a RunState for board b with its initial marbles placed;
// input values are placed separately by SeedInputs (spec.md's
// load_program / call_board construct one of these per invocation).
func New(b *board.Board, prog BoardIndexer, indents uint32) *RunState {
	size := b.Width * b.Height
	rs := &RunState{
		Board:         b,
		Program:       prog,
		Indents:       indents,
		Cur:           make([]Marble, size),
		Next:          make([]Marble, size),
		StdoutStaging: make([]Marble, b.Width),
	}
	for k := 0; k < board.NumLabels; k++ {
		rs.OutputsFilled[k] = len(b.Outputs[k]) == 0
	}
	rs.LeftFilled = len(b.OutputLeft) == 0
	rs.RightFilled = len(b.OutputRight) == 0
	rs.NoOutput = allOutputsEmpty(b)

	for _, im := range b.InitialMarbles {
		rs.Cur[im.Location] = Marble{Occupied: true, Value: im.Value}
	}
	return rs
}

// SeedInputs places input values on the board's declared input cells
// before tick 0, as if they had been written there by a caller.
func (rs *RunState) SeedInputs(inputs []byte) {
	for label, locs := range rs.Board.Inputs {
		if label >= len(inputs) {
			continue
		}
		for _, loc := range locs {
			rs.Cur[loc] = Marble{Occupied: true, Value: inputs[label]}
		}
	}
}

func allOutputsEmpty(b *board.Board) bool {
	for k := 0; k < board.NumLabels; k++ {
		if len(b.Outputs[k]) > 0 {
			return false
		}
	}
	return len(b.OutputLeft) == 0 && len(b.OutputRight) == 0
}

// IsFinished reports whether the top-level termination conditions of spec
// §4.5 hold: the loop stops once the terminator fires, or once nothing
// moved, or once every declared output the board actually has is filled.
func (rs *RunState) IsFinished() bool {
	if rs.TerminatorReached {
		return true
	}
	if !rs.MarblesMoved {
		return true
	}
	if rs.NoOutput {
		return false
	}
	return rs.allOutputsFilled()
}

func (rs *RunState) allOutputsFilled() bool {
	for k := 0; k < board.NumLabels; k++ {
		if !rs.OutputsFilled[k] {
			return false
		}
	}
	return rs.LeftFilled && rs.RightFilled
}

// Finalize aggregates each output by additively summing (mod 256) every
// Cur value at its declared locations; an output is occupied iff at least
// one contributing location was occupied (spec §4.5, §9 Open Questions).
func (rs *RunState) Finalize() {
	for k := 0; k < board.NumLabels; k++ {
		rs.Outputs[k] = aggregate(rs.Cur, rs.Board.Outputs[k])
	}
	rs.OutputLeft = aggregate(rs.Cur, rs.Board.OutputLeft)
	rs.OutputRight = aggregate(rs.Cur, rs.Board.OutputRight)
}

func aggregate(plane []Marble, locs []int) Marble {
	var out Marble
	for _, loc := range locs {
		if plane[loc].Occupied {
			out.Occupied = true
			out.Value += plane[loc].Value
		}
	}
	return out
}
