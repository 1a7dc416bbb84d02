// Package board defines the immutable program graph produced by the
// loader: boards, their cells, sub-board call sites, and the labeled
// location lists (inputs, outputs, synchronisers, portals) the evaluator
// walks on every tick.
//
// Board ↔ BoardCall ↔ Cell would naturally form a reference cycle. Like the
// teacher's CPUState snapshot (struct-of-arrays, no pointers into itself),
// this package breaks the cycle by indices: a Cell of kind BoardRef carries
// an index into its own Board.BoardCalls, and a BoardCall carries an index
// into the owning Program's Boards slice rather than a *Board.
package board

import (
	"strings"

	"boardvm/pkg/device"
)

// NumLabels is the number of base-36 label groups (0-9, A-Z) available to
// inputs, outputs, synchronisers, and portals.
const NumLabels = 36

// Cell is a tagged variant: either a Device (Kind != BoardRef) carrying an
// 8-bit Value parameter, or a BoardRef naming a call site by index.
type Cell struct {
	Kind  device.Kind
	Value byte
	// CallIndex is valid iff Kind == device.BoardRef: the index into the
	// owning Board's BoardCalls slice.
	CallIndex int
}

// InitialMarble is a marble placed on a BLANK cell before tick 0, parsed
// from an inline two-hex-digit literal in the source grid.
type InitialMarble struct {
	Location int
	Value    byte
}

// BoardCall is a call site: board is an index into the owning Program's
// Boards slice naming the callee, and (X, Y) is the top-left cell of the
// contiguous run spelling the callee's repeated short name on the host
// board.
type BoardCall struct {
	BoardIndex int
	X, Y       int
}

// Board is the immutable program graph for one named board, produced by
// the loader and never mutated afterward.
type Board struct {
	Width, Height int
	Cells         []Cell // row-major, index y*Width+x

	InitialMarbles []InitialMarble

	Inputs        [NumLabels][]int
	Outputs       [NumLabels][]int
	Synchronisers [NumLabels][]int
	Portals       [NumLabels][]int

	OutputLeft  []int
	OutputRight []int

	BoardCalls []BoardCall

	ShortName  string
	ActualName string
	FullName   string // file:line#short_name

	// Length is max(1, max_used_io_label+1): the number of host cells a
	// call site naming this board occupies.
	Length int
}

// Index returns the flat row-major index of (x, y) on this board.
func (b *Board) Index(x, y int) int {
	return y*b.Width + x
}

// HighestInput returns the highest declared input label index, or -1 if
// the board declares no inputs. Used by the CLI to size its positional
// argument list (original_source/src/main.cpp binds argv to
// highest_input+1, not a fixed 36).
func (b *Board) HighestInput() int {
	highest := -1
	for i := 0; i < NumLabels; i++ {
		if len(b.Inputs[i]) > 0 {
			highest = i
		}
	}
	return highest
}

// Initialize derives Length and ActualName from the board's own declared
// inputs/outputs and ShortName. It must be called once after a board's
// cells and label lists are fully populated, and before it is used as a
// call target (pkg/loader's board-call resolution matches on ActualName).
func (b *Board) Initialize() {
	maxLabel := -1
	for i := 0; i < NumLabels; i++ {
		if len(b.Inputs[i]) > 0 || len(b.Outputs[i]) > 0 {
			maxLabel = i
		}
	}
	length := maxLabel + 1
	if length < 1 {
		length = 1
	}
	b.Length = length
	b.ActualName = ActualName(b.ShortName, length)
}

// ActualName computes short_name repeated until it reaches 2*length
// characters, then truncated to exactly that length (spec §3 Board).
func ActualName(shortName string, length int) string {
	return repeatTo(shortName, 2*length)
}

// NamesEquivalent reports whether a and b are "rotationally" equal: the
// shorter, repeated and truncated to the longer's length, equals the
// longer. This is the equivalence relation §4.7 uses for include shadowing
// and is exactly why ActualName is built by repetition: any call-text run
// of the right length that is a cyclic repetition of short_name resolves
// to the same board.
func NamesEquivalent(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return a == b
	}
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	return repeatTo(shorter, len(longer)) == longer
}

func repeatTo(s string, n int) string {
	if s == "" || n <= 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(n)
	for sb.Len() < n {
		sb.WriteString(s)
	}
	return sb.String()[:n]
}
