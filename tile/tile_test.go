package tile

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{"0:1", R(0, 1), false},
		{" 3:42 ", R(3, 42), false},
		{"edge", EdgeOfMap, false},
		{"12", Ref{}, true},
		{"a:1", Ref{}, true},
		{"1:b", Ref{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRef(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRef(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if !tc.wantErr && got != tc.want {
				t.Errorf("ParseRef(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRefTextRoundTrip(t *testing.T) {
	r := R(2, 17)
	text, err := r.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var back Ref
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back != r {
		t.Errorf("round trip = %v, want %v", back, r)
	}
}

func TestSortRefs(t *testing.T) {
	refs := []Ref{R(1, 0), R(0, 5), R(0, 1), EdgeOfMap}
	SortRefs(refs)
	want := []Ref{EdgeOfMap, R(0, 1), R(0, 5), R(1, 0)}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("SortRefs = %v, want %v", refs, want)
		}
	}
}

// TestDirectionOpposite verifies every direction round-trips through its opposite.
func TestDirectionOpposite(t *testing.T) {
	for _, d := range Directions {
		dx, dy := d.Offset()
		ox, oy := d.Opposite().Offset()
		if dx != -ox || dy != -oy {
			t.Errorf("%v offset (%d,%d) opposite %v offset (%d,%d)", d, dx, dy, d.Opposite(), ox, oy)
		}
		if d.Opposite().Opposite() != d {
			t.Errorf("%v opposite twice = %v", d, d.Opposite().Opposite())
		}
	}
}

func TestMask(t *testing.T) {
	m := MaskOf(East, West)
	if m != 0b00010001 {
		t.Errorf("MaskOf(E, W) = %v, want 0b00010001", m)
	}
	if !m.Has(East) || m.Has(North) {
		t.Errorf("Has mismatch for %v", m)
	}
	if got := Full.Cardinal(); got != CardinalBits {
		t.Errorf("Full.Cardinal() = %v, want %v", got, CardinalBits)
	}
	if got := Full.Count(); got != 8 {
		t.Errorf("Full.Count() = %d, want 8", got)
	}
	for _, d := range Cardinals {
		if !d.IsCardinal() {
			t.Errorf("%v should be cardinal", d)
		}
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		in      string
		want    Mask
		wantErr bool
	}{
		{"0b00010001", 0x11, false},
		{"0x55", CardinalBits, false},
		{"255", Full, false},
		{"256", 0, true},
		{"east", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseMask(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMask(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMask(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if m, _ := ParseMask(MaskOf(North, South).String()); m != MaskOf(North, South) {
		t.Errorf("String/ParseMask round trip = %v", m)
	}
}

func TestGridFromRows(t *testing.T) {
	g, err := GridFromRows([][]Ref{
		{R(0, 1), R(0, 2)},
		{R(0, 3), R(0, 4)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if w, h := g.Bounds(); w != 2 || h != 2 {
		t.Fatalf("Bounds = %d,%d, want 2,2", w, h)
	}
	if got := g.TileAt(1, 1); got != R(0, 4) {
		t.Errorf("TileAt(1,1) = %v, want 0:4", got)
	}
	if got := g.TileAt(2, 0); got != EdgeOfMap {
		t.Errorf("TileAt out of bounds = %v, want edge", got)
	}
	x, y := g.XY(g.Index(1, 1))
	if x != 1 || y != 1 {
		t.Errorf("XY(Index(1,1)) = %d,%d", x, y)
	}

	if _, err := GridFromRows([][]Ref{{R(0, 1)}, {R(0, 1), R(0, 1)}}); err == nil {
		t.Error("expected error for ragged rows")
	}
}

func TestNeighbor(t *testing.T) {
	g := NewGrid(3, 3, R(0, 1))
	g.Set(P(2, 0), R(0, 9))

	if got, ok := Neighbor(g, 1, 1, NorthEast); !ok || got != R(0, 9) {
		t.Errorf("Neighbor NE = %v,%v, want 0:9,true", got, ok)
	}
	if got, ok := Neighbor(g, 0, 0, West); ok || got != EdgeOfMap {
		t.Errorf("Neighbor off-grid = %v,%v, want edge,false", got, ok)
	}
}

func TestGridCloneEqual(t *testing.T) {
	g := NewGrid(4, 2, R(0, 1))
	c := g.Clone()
	if !g.Equal(c) {
		t.Fatal("clone should equal original")
	}
	c.Set(P(3, 1), R(0, 2))
	if g.Equal(c) {
		t.Error("mutating clone should not affect original")
	}
}

func TestRectPoints(t *testing.T) {
	r := Rect{X0: 1, Y0: 1, X1: 3, Y1: 2}
	pts := r.Points()
	if len(pts) != 2 || pts[0] != P(1, 1) || pts[1] != P(2, 1) {
		t.Errorf("Points = %v", pts)
	}
	if (Rect{X0: 2, X1: 1}).Area() != 0 {
		t.Error("inverted rect should have zero area")
	}
}

func TestConfigurationError(t *testing.T) {
	var err error = fmt.Errorf("loading: %w", ConfigErrorf("category ground", "overlap at %d", 3))
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatal("errors.As should find ConfigurationError")
	}
	if ce.Source != "category ground" {
		t.Errorf("Source = %q", ce.Source)
	}
}
