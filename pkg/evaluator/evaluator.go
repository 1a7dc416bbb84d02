// Package evaluator implements the tick loop: synchroniser arbitration,
// sub-board call preparation and splicing, per-cell device dispatch,
// double-buffer commit, stdout flush, and the termination test, plus the
// finer-grained new_run_state / prepare_board_calls / tick / finalize /
// is_finished surface an interactive stepper drives directly.
//
// Grounded on the teacher's pkg/cpu/cpu.go: a Step() that mutates state in
// place once per call, and a Run()/RunUntilDone() that loops Step until a
// halt condition — generalized here from a register machine's opcode
// switch to the grid's device-kind switch.
package evaluator

import (
	"log/slog"

	"boardvm/pkg/board"
	"boardvm/pkg/device"
	"boardvm/pkg/grid"
	"boardvm/pkg/ioport"
	"boardvm/pkg/random"
	"boardvm/pkg/runstate"
)

// Config generalizes the reference implementation's process-wide
// "cylindrical" and "verbosity" globals into a value passed at
// construction (spec §9 Design notes).
type Config struct {
	// Cylindrical enables horizontal wraparound in setMarble.
	Cylindrical bool
	// Verbosity gates diagnostic logging: >=2 traces every stdout byte
	// as it is written (original_source's _stdout_writehex), >=3 dumps
	// the full board grid every tick (original_source's output_board).
	Verbosity int
}

// Evaluator runs the tick algorithm against boards resolved through
// Program, using the injected IO and Random capabilities (spec §6).
type Evaluator struct {
	Program runstate.BoardIndexer
	IO      ioport.Port
	Random  random.Source
	Config  Config
	Logger  *slog.Logger
}

// New returns an Evaluator. A nil Logger defaults to slog.Default().
func New(program runstate.BoardIndexer, io ioport.Port, rnd random.Source, cfg Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{Program: program, IO: io, Random: rnd, Config: cfg, Logger: logger}
}

// NewRunState allocates a fresh RunState for board b at the given call
// depth, per spec §3's "A RunState is created by new_run_state(board,
// inputs)" (inputs are seeded separately via RunState.SeedInputs so a
// stepper may inspect the freshly-allocated state before inputs land).
func (ev *Evaluator) NewRunState(b *board.Board, indents uint32) *runstate.RunState {
	return runstate.New(b, ev.Program, indents)
}

// IsFinished reports whether rs has met one of the §4.5 termination
// conditions.
func (ev *Evaluator) IsFinished(rs *runstate.RunState) bool {
	return rs.IsFinished()
}

// Finalize aggregates rs's declared outputs from its current plane.
func (ev *Evaluator) Finalize(rs *runstate.RunState) {
	rs.Finalize()
	if ev.Config.Verbosity >= 3 {
		ev.Logger.Debug("board finalized", "board", rs.Board.FullName, "ticks", rs.Tick)
	}
}

// Run ticks rs (in collapsed, non-stepwise mode) until IsFinished reports
// true.
func (ev *Evaluator) Run(rs *runstate.RunState) {
	for {
		ev.Tick(rs, false)
		if rs.IsFinished() {
			return
		}
	}
}

// CallBoard runs board b to completion with the given input values, one
// per declared input label, and returns its aggregated outputs and
// accumulated stdout text. This is the collapsed form of the sub-board
// call protocol: a batch caller recurses immediately instead of pausing
// between PrepareBoardCalls and a later Tick(rs, true) (spec §9).
func (ev *Evaluator) CallBoard(b *board.Board, inputs []byte) (outputs [board.NumLabels]runstate.Marble, left, right runstate.Marble, stdout []byte) {
	return ev.callBoard(b, inputs, 0)
}

func (ev *Evaluator) callBoard(b *board.Board, inputs []byte, indents uint32) ([board.NumLabels]runstate.Marble, runstate.Marble, runstate.Marble, []byte) {
	rs := ev.NewRunState(b, indents)
	rs.SeedInputs(inputs)
	ev.Run(rs)
	ev.Finalize(rs)
	return rs.Outputs, rs.OutputLeft, rs.OutputRight, rs.StdoutText
}

// Tick advances rs by exactly one tick (spec §4.4). When usePrepared is
// false, board calls are prepared and spliced within this same call
// (the collapsed path); when true, Tick splices whatever PrepareBoardCalls
// most recently staged in rs.Prepared, letting a caller inspect prepared
// child RunStates in between.
func (ev *Evaluator) Tick(rs *runstate.RunState, usePrepared bool) {
	rs.MarblesMoved = false
	rs.Processed = rs.Processed[:0]

	ev.processSynchronisers(rs)
	if !usePrepared {
		ev.PrepareBoardCalls(rs)
	}
	ev.spliceBoardCalls(rs)
	ev.dispatchCells(rs)

	rs.Cur, rs.Next = rs.Next, rs.Cur
	for i := range rs.Next {
		rs.Next[i] = runstate.Marble{}
	}

	ev.flushStdout(rs)
	rs.Tick++

	if ev.Config.Verbosity >= 3 {
		ev.Logger.Debug("tick", "board", rs.Board.FullName, "n", rs.Tick, "grid", rs.DebugString())
	}
}

func (ev *Evaluator) flushStdout(rs *runstate.RunState) {
	for col := range rs.StdoutStaging {
		m := rs.StdoutStaging[col]
		if !m.Occupied {
			continue
		}
		if ev.IO != nil {
			ev.IO.WriteByte(m.Value)
		}
		rs.StdoutText = append(rs.StdoutText, m.Value)
		if ev.Config.Verbosity >= 2 {
			ev.Logger.Info("stdout", "byte", m.Value, "col", col)
		}
		rs.StdoutStaging[col] = runstate.Marble{}
	}
}

// processSynchronisers is phase (1): synchroniser groups are arbitrated
// before board calls and per-cell dispatch so that every group's decision
// sees a stable Cur (spec §4.2).
func (ev *Evaluator) processSynchronisers(rs *runstate.RunState) {
	b := rs.Board
	for k := 0; k < board.NumLabels; k++ {
		group := b.Synchronisers[k]
		if len(group) == 0 {
			continue
		}
		allOccupied := true
		for _, loc := range group {
			if !rs.Cur[loc].Occupied {
				allOccupied = false
				break
			}
		}
		for _, loc := range group {
			m := rs.Cur[loc]
			if !m.Occupied {
				continue
			}
			x, y := grid.Coords(loc, b.Width)
			if allOccupied {
				ev.setMarble(rs, x, y, 0, 1, m.Value)
			} else {
				ev.setMarble(rs, x, y, 0, 0, m.Value)
			}
		}
		if allOccupied {
			rs.MarblesMoved = true
		}
	}
}

// dispatchCells is phase (3): every occupied cell not already handled by
// synchroniser arbitration or board-call splicing fires its device.
func (ev *Evaluator) dispatchCells(rs *runstate.RunState) {
	b := rs.Board
	for loc, cell := range b.Cells {
		if cell.Kind == device.Synchroniser || cell.Kind == device.BoardRef {
			continue
		}
		m := rs.Cur[loc]
		if !m.Occupied {
			continue
		}
		x, y := grid.Coords(loc, b.Width)
		ev.dispatchDevice(rs, x, y, cell, m.Value)
	}
}

// dispatchDevice implements the per-kind movement rules of spec §4.1's
// device table.
func (ev *Evaluator) dispatchDevice(rs *runstate.RunState, x, y int, cell board.Cell, v byte) {
	if cell.Kind != device.Terminator && cell.Kind != device.Output {
		rs.MarblesMoved = true
	}

	switch cell.Kind {
	case device.LeftDeflector:
		ev.setMarble(rs, x, y, -1, 0, v)
	case device.RightDeflector:
		ev.setMarble(rs, x, y, 1, 0, v)
	case device.Portal:
		ev.dispatchPortal(rs, x, y, cell.Value, v)
	case device.Equals:
		if v == cell.Value {
			ev.setMarble(rs, x, y, 0, 1, v)
		} else {
			ev.setMarble(rs, x, y, 1, 0, v)
		}
	case device.GreaterThan:
		if v > cell.Value {
			ev.setMarble(rs, x, y, 0, 1, v)
		} else {
			ev.setMarble(rs, x, y, 1, 0, v)
		}
	case device.LessThan:
		if v < cell.Value {
			ev.setMarble(rs, x, y, 0, 1, v)
		} else {
			ev.setMarble(rs, x, y, 1, 0, v)
		}
	case device.Adder:
		ev.setMarble(rs, x, y, 0, 1, v+cell.Value)
	case device.Incrementor:
		ev.setMarble(rs, x, y, 0, 1, v+1)
	case device.Subtractor:
		ev.setMarble(rs, x, y, 0, 1, v-cell.Value)
	case device.Decrementor:
		ev.setMarble(rs, x, y, 0, 1, v-1)
	case device.BitChecker:
		ev.setMarble(rs, x, y, 0, 1, (v>>cell.Value)&1)
	case device.LeftBitShifter:
		ev.setMarble(rs, x, y, 0, 1, v<<1)
	case device.RightBitShifter:
		ev.setMarble(rs, x, y, 0, 1, v>>1)
	case device.BinaryNot:
		ev.setMarble(rs, x, y, 0, 1, ^v)
	case device.Stdin:
		if ev.IO != nil && ev.IO.ReadAvailable() {
			ev.setMarble(rs, x, y, 0, 1, ev.IO.ReadByte())
		} else {
			ev.setMarble(rs, x, y, 1, 0, v)
		}
	case device.Input, device.Blank:
		ev.setMarble(rs, x, y, 0, 1, v)
	case device.Output:
		ev.setMarble(rs, x, y, 0, 0, v)
	case device.TrashBin:
		// Dropped; rs.MarblesMoved was already set above.
	case device.Cloner:
		ev.setMarble(rs, x, y, -1, 0, v)
		ev.setMarble(rs, x, y, 1, 0, v)
	case device.Terminator:
		rs.TerminatorReached = true
	case device.Random:
		n := int(cell.Value)
		if cell.Value == device.ValueWildcard {
			n = int(v)
		}
		ev.setMarble(rs, x, y, 0, 1, byte(ev.Random.Inclusive(n)))
	}
}

// dispatchPortal implements PORTAL @k: choose a uniformly random other
// portal sharing label k, or loop back to self if it is the only portal
// with that label (original_source/src/board.cpp lines 373-392).
func (ev *Evaluator) dispatchPortal(rs *runstate.RunState, x, y int, label byte, v byte) {
	b := rs.Board
	if int(label) >= board.NumLabels {
		return
	}
	group := b.Portals[label]
	loc := b.Index(x, y)

	outLoc := loc
	if len(group) > 1 {
		others := make([]int, 0, len(group)-1)
		for _, g := range group {
			if g != loc {
				others = append(others, g)
			}
		}
		idx := ev.Random.Range(len(others))
		if idx < 0 || idx >= len(others) {
			idx = 0
		}
		outLoc = others[idx]
	}

	ox, oy := grid.Coords(outLoc, b.Width)
	ev.setMarble(rs, ox, oy, 0, 1, v)
}

// setMarble is the single write path into rs.Next: it applies horizontal
// wraparound/drop, the stdout-fall rule, and additive-merge-mod-256
// collision semantics, and updates terminator/output stickiness when the
// target cell is a TERMINATOR or a declared OUTPUT (spec §4.1).
func (ev *Evaluator) setMarble(rs *runstate.RunState, srcX, srcY, dx, dy int, value byte) {
	b := rs.Board

	x := srcX + dx
	if x < 0 || x >= b.Width {
		if !ev.Config.Cylindrical {
			return
		}
		if x < 0 {
			x = b.Width - 1
		} else {
			x = 0
		}
	}

	y := srcY + dy
	if y < 0 {
		if ev.Logger != nil {
			ev.Logger.Warn("marble displaced above top row", "board", b.FullName, "x", srcX, "y", srcY)
		}
		return
	}
	if y >= b.Height {
		rs.StdoutStaging[x].Value += value
		rs.StdoutStaging[x].Occupied = true
		return
	}

	target := b.Index(x, y)
	rs.Next[target].Value += value
	rs.Next[target].Occupied = true

	switch b.Cells[target].Kind {
	case device.Terminator:
		rs.TerminatorReached = true
	case device.Output:
		switch b.Cells[target].Value {
		case device.ValueLeft:
			rs.LeftFilled = true
		case device.ValueRight:
			rs.RightFilled = true
		default:
			if int(b.Cells[target].Value) < board.NumLabels {
				rs.OutputsFilled[b.Cells[target].Value] = true
			}
		}
	}
}
