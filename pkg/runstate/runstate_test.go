package runstate

import (
	"strings"
	"testing"

	"boardvm/pkg/board"
	"boardvm/pkg/device"
)

type stubIndexer struct{ boards []*board.Board }

func (s stubIndexer) BoardAt(i int) *board.Board { return s.boards[i] }

func TestNewSeedsInitialMarblesAndInputs(t *testing.T) {
	b := &board.Board{Width: 2, Height: 1}
	b.Cells = []board.Cell{{Kind: device.Input, Value: 0}, {Kind: device.Blank}}
	b.Inputs[0] = []int{b.Index(0, 0)}
	b.InitialMarbles = []board.InitialMarble{{Location: b.Index(1, 0), Value: 9}}
	b.Initialize()

	rs := New(b, stubIndexer{}, 0)
	rs.SeedInputs([]byte{0x07})

	if !rs.Cur[b.Index(0, 0)].Occupied || rs.Cur[b.Index(0, 0)].Value != 0x07 {
		t.Fatalf("input cell = %+v; want occupied 0x07", rs.Cur[b.Index(0, 0)])
	}
	if !rs.Cur[b.Index(1, 0)].Occupied || rs.Cur[b.Index(1, 0)].Value != 9 {
		t.Fatalf("initial marble cell = %+v; want occupied 9", rs.Cur[b.Index(1, 0)])
	}
}

func TestIsFinishedNoOutputBoardRunsUntilInactive(t *testing.T) {
	b := &board.Board{Width: 1, Height: 1}
	b.Cells = []board.Cell{{Kind: device.Blank}}
	b.Initialize()

	rs := New(b, stubIndexer{}, 0)
	// A freshly allocated RunState has MarblesMoved=false (nothing has
	// ticked yet), which IsFinished treats the same as "this tick moved
	// nothing" — Evaluator.Run always ticks at least once before checking.
	if !rs.IsFinished() {
		t.Fatalf("freshly allocated RunState should vacuously report finished")
	}

	rs.MarblesMoved = true
	if rs.IsFinished() {
		t.Fatalf("NoOutput board with MarblesMoved=true should keep running")
	}
	rs.MarblesMoved = false
	if !rs.IsFinished() {
		t.Fatalf("expected finished once nothing moves")
	}
}

func TestIsFinishedTerminatorWins(t *testing.T) {
	b := &board.Board{Width: 1, Height: 1}
	b.Cells = []board.Cell{{Kind: device.Terminator}}
	b.Initialize()

	rs := New(b, stubIndexer{}, 0)
	rs.MarblesMoved = true
	rs.TerminatorReached = true
	if !rs.IsFinished() {
		t.Fatalf("TerminatorReached should finish regardless of MarblesMoved")
	}
}

func TestFinalizeAggregatesOccupiedOnly(t *testing.T) {
	b := &board.Board{Width: 2, Height: 1}
	b.Cells = []board.Cell{{Kind: device.Output, Value: 0}, {Kind: device.Output, Value: 0}}
	b.Outputs[0] = []int{b.Index(0, 0), b.Index(1, 0)}
	b.Initialize()

	rs := New(b, stubIndexer{}, 0)
	rs.Cur[b.Index(0, 0)] = Marble{Occupied: true, Value: 5}
	// (1,0) left unoccupied.
	rs.Finalize()

	if !rs.Outputs[0].Occupied || rs.Outputs[0].Value != 5 {
		t.Fatalf("Outputs[0] = %+v; want occupied 5", rs.Outputs[0])
	}
}

func TestFinalizeAllUnoccupiedStaysUnoccupied(t *testing.T) {
	b := &board.Board{Width: 1, Height: 1}
	b.Cells = []board.Cell{{Kind: device.Output, Value: 0}}
	b.Outputs[0] = []int{b.Index(0, 0)}
	b.Initialize()

	rs := New(b, stubIndexer{}, 0)
	rs.Finalize()

	if rs.Outputs[0].Occupied {
		t.Fatalf("Outputs[0] = %+v; want unoccupied when no contributing cell fired", rs.Outputs[0])
	}
}

func TestDebugStringShowsMarblesAndGlyphs(t *testing.T) {
	b := &board.Board{Width: 2, Height: 1, FullName: "test:1#MB"}
	b.Cells = []board.Cell{{Kind: device.Blank}, {Kind: device.Output, Value: 0}}
	b.Outputs[0] = []int{b.Index(1, 0)}
	b.InitialMarbles = []board.InitialMarble{{Location: b.Index(0, 0), Value: 0x2A}}
	b.Initialize()

	rs := New(b, stubIndexer{}, 0)
	out := rs.DebugString()

	if !strings.Contains(out, "2A") {
		t.Fatalf("DebugString() = %q; want it to show the occupied marble as hex", out)
	}
	if !strings.Contains(out, "{0") {
		t.Fatalf("DebugString() = %q; want it to show the empty output cell's glyph", out)
	}
}
