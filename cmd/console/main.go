// Command console is the batch CLI entry point: load a source file, bind
// positional decimal-byte arguments to the root board's declared inputs in
// ascending label order, run it to completion, and exit with the low byte
// of output 0 (spec §6).
//
// Grounded on the teacher's cmd/console/main.go: flag-based parsing of
// trailing positional arguments, read-file-then-run structure, explicit
// log.Fatalf on a fatal error.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"boardvm"
	"boardvm/pkg/board"
	"boardvm/pkg/ioport"
	"boardvm/pkg/render"
	"boardvm/pkg/utils"
)

func main() {
	verbosity := flag.Int("v", 0, "verbosity level (0-3)")
	enableCyl := flag.Bool("enable-cylindrical", false, "enable horizontal wraparound")
	disableCyl := flag.Bool("disable-cylindrical", false, "disable horizontal wraparound (default)")
	seed := flag.Int64("seed", 1, "seed for the default math/rand Source")
	screenshot := flag.String("screenshot", "", "write a PNG of the final board state to this path")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] SOURCE [input0 input1 ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *enableCyl && *disableCyl {
		log.Fatalf("--enable-cylindrical and --disable-cylindrical are mutually exclusive")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: verbosityToLevel(*verbosity),
	}))

	sourcePath := flag.Arg(0)
	fullPath, _, err := utils.GetPathInfo(sourcePath)
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

	inputs := bindInputs(mb, flag.Args()[1:], logger)

	io := ioport.NewStdio()
	cfg := boardvm.Config{
		Cylindrical: *enableCyl,
		Verbosity:   *verbosity,
		Seed:        *seed,
	}
	m := boardvm.NewMachine(prog, io, cfg, logger)

	rs := m.NewRunState(mb, inputs)
	m.Eval.Run(rs)
	m.Finalize(rs)

	if *screenshot != "" {
		if err := render.SaveScreenshot(*screenshot, mb, rs, 16); err != nil {
			logger.Warn("screenshot failed", "err", err)
		}
	}

	exitCode := 0
	if rs.Outputs[0].Occupied {
		exitCode = int(rs.Outputs[0].Value)
	}
	os.Exit(exitCode)
}

// bindInputs parses decimal byte arguments for mb's declared inputs, in
// ascending label order, up to HighestInput()+1 values (spec §6,
// supplemented feature 5: binding by highest declared input index rather
// than a fixed 36).
func bindInputs(mb *board.Board, args []string, logger *slog.Logger) []byte {
	highest := mb.HighestInput()
	if highest < 0 {
		if len(args) > 0 {
			logger.Warn("board declares no inputs; ignoring positional arguments")
		}
		return nil
	}

	inputs := make([]byte, highest+1)
	for i := 0; i <= highest && i < len(args); i++ {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			log.Fatalf("input %d: %q is not a decimal byte: %v", i, args[i], err)
		}
		if n < 0 || n > 255 {
			logger.Warn("InputOutOfRange", "index", i, "value", n)
		}
		inputs[i] = byte(((n % 256) + 256) % 256)
	}
	return inputs
}

func verbosityToLevel(v int) slog.Level {
	switch {
	case v >= 3:
		return slog.LevelDebug
	case v >= 2:
		return slog.LevelInfo
	case v >= 1:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
