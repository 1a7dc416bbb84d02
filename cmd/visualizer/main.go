// Command visualizer is an optional interactive stepper built on
// ebiten.Game: one frame advances at most one tick, driven through the
// same PrepareBoardCalls/Tick(usePrepared)/IsFinished surface a batch
// caller would collapse into a single recursive call (spec §9's "exists
// solely to let a UI pause between 'a sub-board was invoked' and 'its
// result flows back'"). The core evaluator never imports ebiten; this
// command is the only place that does.
//
// Grounded on the teacher's cmd/desktop/main.go: an ebiten.Game with
// Update/Draw, F5/F9 hotkeys for hibernate/restore (here: snapshot
// save/load), input characters forwarded into the running program's
// STDIN, and the board drawn as a scaled pkg/render image with a text
// status line below it.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"boardvm"
	"boardvm/pkg/ioport"
	"boardvm/pkg/loader"
	"boardvm/pkg/render"
	"boardvm/pkg/runstate"
	"boardvm/pkg/snapshot"
	"boardvm/pkg/utils"
)

const cellSize = 16
const snapshotPath = "visualizer_state.zip"

type Game struct {
	m          *boardvm.Machine
	prog       *loader.Program
	rs         *runstate.RunState
	boardImage *ebiten.Image
	paused     bool
	stdin      *ioport.Buffer
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		g.stdin.Push(byte(r))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.stdin.Push('\n')
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		data, err := snapshot.Save(g.rs, g.prog)
		if err != nil {
			fmt.Printf("[snapshot] save failed: %v\n", err)
		} else if err := os.WriteFile(snapshotPath, data, 0644); err != nil {
			fmt.Printf("[snapshot] save failed: %v\n", err)
		} else {
			fmt.Printf("[snapshot] state saved to %s\n", snapshotPath)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		data, err := os.ReadFile(snapshotPath)
		if err != nil {
			fmt.Printf("[snapshot] load failed: %v\n", err)
		} else if rs, err := snapshot.Restore(data, g.prog); err != nil {
			fmt.Printf("[snapshot] load failed: %v\n", err)
		} else {
			g.rs = rs
			fmt.Printf("[snapshot] state restored from %s\n", snapshotPath)
		}
	}

	// A RunState that has not ticked yet reports finished (MarblesMoved is
	// still false), so tick 0 is always allowed to run.
	if !g.paused && (g.rs.Tick == 0 || !g.m.IsFinished(g.rs)) {
		g.m.PrepareBoardCalls(g.rs)
		g.m.Tick(g.rs, true)
		if g.m.IsFinished(g.rs) {
			g.m.Finalize(g.rs)
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	img := render.Scale(render.Image(g.rs.Board, g.rs), cellSize)
	if g.boardImage == nil || g.boardImage.Bounds() != img.Bounds() {
		g.boardImage = ebiten.NewImageFromImage(img)
	} else {
		g.boardImage.WritePixels(img.Pix)
	}
	screen.DrawImage(g.boardImage, nil)

	status := fmt.Sprintf("board %s  tick %d  depth %d", g.rs.Board.FullName, g.rs.Tick, g.rs.Indents)
	if g.m.IsFinished(g.rs) {
		status += "  [finished]"
	} else if g.paused {
		status += "  [paused]"
	}
	ebitenutil.DebugPrintAt(screen, status, 4, g.rs.Board.Height*cellSize+4)
	ebitenutil.DebugPrintAt(screen, "SPACE pause  F5 save  F9 load", 4, g.rs.Board.Height*cellSize+20)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.rs.Board.Width * cellSize, g.rs.Board.Height*cellSize + 40
}

func main() {
	verbosity := flag.Int("v", 0, "verbosity level (0-3)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s SOURCE\n", os.Args[0])
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fullPath, _, err := utils.GetPathInfo(flag.Arg(0))
	if err != nil {
		log.Fatalf("resolving source path: %v", err)
	}
	prog, err := boardvm.LoadProgram(fullPath, logger)
	if err != nil {
		log.Fatalf("loading %s: %v", fullPath, err)
	}
	mb, ok := prog.MB()
	if !ok {
		log.Fatalf("%s declares no default board MB", fullPath)
	}

	stdin := ioport.NewBuffer(nil)
	cfg := boardvm.Config{Verbosity: *verbosity}
	m := boardvm.NewMachine(prog, stdin, cfg, logger)
	rs := m.NewRunState(mb, nil)

	ebiten.SetWindowSize(mb.Width*cellSize*2, mb.Height*cellSize*2+40)
	ebiten.SetWindowTitle("marble board visualizer")

	game := &Game{m: m, prog: prog, rs: rs, stdin: stdin}
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
