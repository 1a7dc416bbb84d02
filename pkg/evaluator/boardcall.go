package evaluator

import (
	"boardvm/pkg/board"
	"boardvm/pkg/runstate"
)

// PrepareBoardCalls performs step (1) of spec §4.3 for every board-call
// site on rs's board: it decides, for the current Cur plane, whether each
// call's required inputs are all present. A ready call gets a freshly
// allocated child RunState with its inputs already seeded (not yet
// advanced); an unready call is recorded with a nil child so the later
// splice step re-parks its cells instead of invoking it.
//
// This is the half of the stepwise lifecycle a UI can pause after: once
// PrepareBoardCalls returns, rs.Prepared exposes every child invocation
// about to happen, before any of them has run a single tick.
func (ev *Evaluator) PrepareBoardCalls(rs *runstate.RunState) {
	b := rs.Board
	prepared := make([]*runstate.Call, 0, len(b.BoardCalls))

	for _, site := range b.BoardCalls {
		callee := ev.Program.BoardAt(site.BoardIndex)
		if ready(rs, b, site, callee) {
			inputs := gatherInputs(rs, b, site, callee)
			child := ev.NewRunState(callee, rs.Indents+1)
			child.SeedInputs(inputs)
			prepared = append(prepared, &runstate.Call{Site: site, Child: child})
		} else {
			prepared = append(prepared, &runstate.Call{Site: site, Child: nil})
		}
	}

	rs.Prepared = prepared
}

// spliceBoardCalls performs step (2)-(3) of spec §4.3: every prepared call
// runs to completion (the collapsed recursion a batch evaluator performs
// immediately) and its outputs are spliced into rs.Next at the same
// locations the reference's copy_output_helper uses; an unready call has
// its occupied cells re-emitted unchanged instead.
func (ev *Evaluator) spliceBoardCalls(rs *runstate.RunState) {
	for _, call := range rs.Prepared {
		site := call.Site
		callee := ev.Program.BoardAt(site.BoardIndex)

		if call.Child == nil {
			parkCall(ev, rs, site, callee)
			continue
		}

		ev.Run(call.Child)
		ev.Finalize(call.Child)
		spliceOutputs(ev, rs, site, callee, call.Child)
		rs.MarblesMoved = true
		rs.Processed = append(rs.Processed, call)
	}
	rs.Prepared = nil
}

func ready(rs *runstate.RunState, host *board.Board, site board.BoardCall, callee *board.Board) bool {
	for i := 0; i < callee.Length; i++ {
		if len(callee.Inputs[i]) == 0 {
			continue
		}
		loc := host.Index(site.X+i, site.Y)
		if !rs.Cur[loc].Occupied {
			return false
		}
	}
	return true
}

func gatherInputs(rs *runstate.RunState, host *board.Board, site board.BoardCall, callee *board.Board) []byte {
	inputs := make([]byte, callee.Length)
	for i := 0; i < callee.Length; i++ {
		loc := host.Index(site.X+i, site.Y)
		if rs.Cur[loc].Occupied {
			inputs[i] = rs.Cur[loc].Value
		}
	}
	return inputs
}

func parkCall(ev *Evaluator, rs *runstate.RunState, site board.BoardCall, callee *board.Board) {
	for i := 0; i < callee.Length; i++ {
		loc := rs.Board.Index(site.X+i, site.Y)
		if rs.Cur[loc].Occupied {
			ev.setMarble(rs, site.X+i, site.Y, 0, 0, rs.Cur[loc].Value)
		}
	}
}

func spliceOutputs(ev *Evaluator, rs *runstate.RunState, site board.BoardCall, callee *board.Board, child *runstate.RunState) {
	for i := 0; i < board.NumLabels; i++ {
		if child.Outputs[i].Occupied {
			ev.setMarble(rs, site.X+i, site.Y, 0, 1, child.Outputs[i].Value)
		}
	}
	if child.OutputLeft.Occupied {
		ev.setMarble(rs, site.X, site.Y, -1, 0, child.OutputLeft.Value)
	}
	if child.OutputRight.Occupied {
		ev.setMarble(rs, site.X+callee.Length-1, site.Y, 1, 0, child.OutputRight.Value)
	}
}
