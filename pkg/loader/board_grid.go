package loader

import (
	"boardvm/pkg/board"
	"boardvm/pkg/device"
)

// pendingRun is a contiguous, same-row run of cells that classified as
// board-call candidates (no hex literal, no recognised device glyph). It is
// resolved against declared board names once every board in the current
// file and its includes is known (spec §4.7).
type pendingRun struct {
	Y      int
	XStart int
	Text   string // concatenated 2-char cell texts, in column order
}

// loadBoardGrid parses a board's grid rows into b, populating its cell
// array, label location lists, and initial marbles. It returns the runs of
// unresolved board-call candidate cells for later resolution, since board
// names declared later in the same file (or in a sibling #include) may
// still be pending.
//
// Grounded on original_source/src/load.cpp's _load_board / _process_cell:
// per-row spaced-ness and width detected independently, the board's overall
// width taken as the max over all rows, and any row shorter than that
// right-padded with BLANK rather than rejected.
func loadBoardGrid(lines []Line, b *board.Board) ([]pendingRun, error) {
	if len(lines) == 0 {
		// A board with no grid rows is a 0x0 board: legal, just inert.
		b.Width, b.Height = 0, 0
		return nil, nil
	}

	type rowInfo struct {
		spaced bool
		width  int
	}
	rows := make([]rowInfo, len(lines))
	width := 0
	for i, ln := range lines {
		spaced := ln.Spaced()
		w, err := ln.Width(spaced)
		if err != nil {
			return nil, err
		}
		rows[i] = rowInfo{spaced: spaced, width: w}
		if w > width {
			width = w
		}
	}

	height := len(lines)
	cells := make([]board.Cell, width*height)
	for i := range cells {
		cells[i].Kind = device.Blank
	}

	var runs []pendingRun
	var initial []board.InitialMarble
	var inputs, outputs, synchronisers, portals [board.NumLabels][]int
	var outputLeft, outputRight []int

	for y, ln := range lines {
		row := rows[y]

		var run pendingRun
		runOpen := false
		flushRun := func() {
			if runOpen {
				runs = append(runs, run)
				runOpen = false
			}
		}

		for x := 0; x < width; x++ {
			loc := y*width + x

			if x >= row.width {
				// Row is shorter than the board's widest row: pad with
				// BLANK (already the zero value in cells) instead of
				// erroring.
				flushRun()
				continue
			}

			text, err := ln.CellText(x, row.spaced)
			if err != nil {
				return nil, err
			}
			cls := device.Classify(text)

			switch {
			case cls.Blank && cls.HasMarble:
				flushRun()
				cells[loc] = board.Cell{Kind: device.Blank}
				initial = append(initial, board.InitialMarble{Location: loc, Value: cls.Value})
			case cls.Blank:
				flushRun()
				cells[loc] = board.Cell{Kind: device.Blank}
			case cls.IsDevice:
				flushRun()
				cells[loc] = board.Cell{Kind: cls.Kind, Value: cls.Value}
				recordLabel(cls.Kind, cls.Value, loc, &inputs, &outputs, &synchronisers, &portals, &outputLeft, &outputRight)
			default:
				if !runOpen {
					run = pendingRun{Y: y, XStart: x}
					runOpen = true
				}
				run.Text += text
			}
		}
		flushRun()
	}

	b.Width, b.Height = width, height
	b.Cells = cells
	b.InitialMarbles = initial
	b.Inputs = inputs
	b.Outputs = outputs
	b.Synchronisers = synchronisers
	b.Portals = portals
	b.OutputLeft = outputLeft
	b.OutputRight = outputRight
	return runs, nil
}

func recordLabel(kind device.Kind, value byte, loc int, inputs, outputs, synchronisers, portals *[board.NumLabels][]int, outputLeft, outputRight *[]int) {
	switch kind {
	case device.Input:
		if int(value) < board.NumLabels {
			inputs[value] = append(inputs[value], loc)
		}
	case device.Output:
		switch value {
		case device.ValueLeft:
			*outputLeft = append(*outputLeft, loc)
		case device.ValueRight:
			*outputRight = append(*outputRight, loc)
		default:
			if int(value) < board.NumLabels {
				outputs[value] = append(outputs[value], loc)
			}
		}
	case device.Synchroniser:
		if int(value) < board.NumLabels {
			synchronisers[value] = append(synchronisers[value], loc)
		}
	case device.Portal:
		if int(value) < board.NumLabels {
			portals[value] = append(portals[value], loc)
		}
	}
}
