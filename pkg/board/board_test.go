package board

import "testing"

func TestActualName(t *testing.T) {
	tests := []struct {
		shortName string
		length    int
		want      string
	}{
		{"ID", 1, "ID"},
		{"A", 1, "AA"},
		{"ABC", 2, "ABCA"},
		{"AB", 3, "ABABAB"},
	}
	for _, tc := range tests {
		if got := ActualName(tc.shortName, tc.length); got != tc.want {
			t.Errorf("ActualName(%q, %d) = %q; want %q", tc.shortName, tc.length, got, tc.want)
		}
	}
}

func TestNamesEquivalent(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"ID", "IDID", true},
		{"IDID", "ID", true},
		{"ABABAB", "AB", true},
		{"ABC", "ABCABC", true},
		{"ABC", "ABD", false},
		{"", "", true},
		{"A", "", false},
	}
	for _, tc := range tests {
		if got := NamesEquivalent(tc.a, tc.b); got != tc.want {
			t.Errorf("NamesEquivalent(%q, %q) = %v; want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestInitializeDerivesLengthAndActualName(t *testing.T) {
	b := &Board{ShortName: "ID"}
	b.Inputs[0] = []int{0}
	b.Outputs[0] = []int{5}
	b.Initialize()
	if b.Length != 1 {
		t.Fatalf("Length = %d; want 1", b.Length)
	}
	if b.ActualName != "ID" {
		t.Fatalf("ActualName = %q; want ID", b.ActualName)
	}
}

func TestInitializeNoLabelsYieldsLengthOne(t *testing.T) {
	b := &Board{ShortName: "X"}
	b.Initialize()
	if b.Length != 1 {
		t.Fatalf("Length = %d; want 1", b.Length)
	}
	if b.ActualName != "XX" {
		t.Fatalf("ActualName = %q; want XX", b.ActualName)
	}
}

func TestHighestInput(t *testing.T) {
	b := &Board{}
	if got := b.HighestInput(); got != -1 {
		t.Fatalf("HighestInput() = %d; want -1", got)
	}
	b.Inputs[0] = []int{1}
	b.Inputs[3] = []int{2}
	if got := b.HighestInput(); got != 3 {
		t.Fatalf("HighestInput() = %d; want 3", got)
	}
}
