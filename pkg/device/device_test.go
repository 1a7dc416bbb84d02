package device

import "testing"

func TestClassifyBlank(t *testing.T) {
	for _, cell := range []string{"..", "  "} {
		c := Classify(cell)
		if !c.Blank || c.HasMarble || c.IsDevice {
			t.Fatalf("Classify(%q) = %+v; want a plain blank", cell, c)
		}
	}
}

func TestClassifyHexMarble(t *testing.T) {
	c := Classify("2A")
	if !c.Blank || !c.HasMarble || c.Value != 0x2A {
		t.Fatalf("Classify(\"2A\") = %+v; want blank cell with marble 0x2A", c)
	}
}

func TestClassifyDeviceGlyphs(t *testing.T) {
	cases := []struct {
		cell  string
		kind  Kind
		value byte
	}{
		{"//", LeftDeflector, 0},
		{"\\\\", RightDeflector, 0},
		{"/\\", Cloner, 0},
		{"\\/", TrashBin, 0},
		{"@5", Portal, 5},
		{"&A", Synchroniser, 10},
		{"=3", Equals, 3},
		{">>", RightBitShifter, 0},
		{">7", GreaterThan, 7},
		{"<<", LeftBitShifter, 0},
		{"<2", LessThan, 2},
		{"++", Incrementor, 1},
		{"+1", Adder, 1},
		{"--", Decrementor, 1},
		{"-1", Subtractor, 1},
		{"^3", BitChecker, 3},
		{"~~", BinaryNot, 0},
		{"]]", Stdin, 0},
		{"}0", Input, 0},
		{"{0", Output, 0},
		{"{<", Output, ValueLeft},
		{"{>", Output, ValueRight},
		{"!!", Terminator, 0},
		{"??", Random, ValueWildcard},
		{"?Z", Random, 35},
	}
	for _, tc := range cases {
		c := Classify(tc.cell)
		if !c.IsDevice || c.Kind != tc.kind || c.Value != tc.value {
			t.Fatalf("Classify(%q) = %+v; want kind=%v value=%d", tc.cell, c, tc.kind, tc.value)
		}
	}
}

func TestClassifyUnrecognisedFallsThroughAsCallCandidate(t *testing.T) {
	c := Classify("ID")
	if c.Blank || c.HasMarble || c.IsDevice {
		t.Fatalf("Classify(\"ID\") = %+v; want a board-call candidate (all flags false)", c)
	}
}

func TestGlyphRoundTripsThroughClassify(t *testing.T) {
	kinds := []struct {
		kind  Kind
		value byte
	}{
		{LeftDeflector, 0}, {RightDeflector, 0}, {Portal, 7}, {Synchroniser, 12},
		{Equals, 0}, {GreaterThan, 9}, {LessThan, 1}, {Adder, 3}, {Subtractor, 4},
		{Incrementor, 1}, {Decrementor, 1}, {BitChecker, 2}, {LeftBitShifter, 0},
		{RightBitShifter, 0}, {BinaryNot, 0}, {Stdin, 0}, {Input, 0}, {Output, 5},
		{Output, ValueLeft}, {Output, ValueRight}, {TrashBin, 0}, {Cloner, 0},
		{Terminator, 0}, {Random, 20}, {Random, ValueWildcard}, {Blank, 0},
	}
	for _, k := range kinds {
		glyph := Glyph(k.kind, k.value)
		if k.kind == Blank {
			if glyph != ".." {
				t.Fatalf("Glyph(Blank,0) = %q; want \"..\"", glyph)
			}
			continue
		}
		c := Classify(glyph)
		if !c.IsDevice || c.Kind != k.kind || c.Value != k.value {
			t.Fatalf("round trip of (%v,%d) via glyph %q = %+v", k.kind, k.value, glyph, c)
		}
	}
}

func TestKindStringUnknown(t *testing.T) {
	var k Kind = 200
	if got := k.String(); got == "" {
		t.Fatalf("String() of an out-of-range Kind should not be empty")
	}
}
