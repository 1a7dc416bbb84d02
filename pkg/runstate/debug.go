package runstate

import (
	"fmt"
	"strings"

	"boardvm/pkg/device"
)

// DebugString renders rs's current plane as a plain-text grid: an occupied
// cell shows its marble value as two hex digits, an empty cell shows its
// device's glyph. This is the supplemented-feature text equivalent of
// original_source/src/board.cpp's output_board, usable from a CLI or test
// without a display.
func (rs *RunState) DebugString() string {
	b := rs.Board
	var sb strings.Builder
	fmt.Fprintf(&sb, "board %s  tick %d  indents %d\n", b.FullName, rs.Tick, rs.Indents)

	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			loc := b.Index(x, y)
			m := rs.Cur[loc]
			if m.Occupied {
				fmt.Fprintf(&sb, "%02X", m.Value)
				continue
			}
			cell := b.Cells[loc]
			if cell.Kind == device.BoardRef {
				sb.WriteString("##")
				continue
			}
			sb.WriteString(device.Glyph(cell.Kind, cell.Value))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
