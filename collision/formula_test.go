package collision

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/tilegrid/tile"
)

// slope builds a 16px tile with a rising ramp on the left half and a flat
// floor on the right half.
func slope() *Category {
	return &Category{
		Name: "slope",
		Axis: Horizontal,
		Formulas: []Formula{
			{Kind: Linear, Min: 0, Max: 8, Slope: -1, Offset: 16},
			{Kind: Flat, Min: 8, Max: 16, Offset: 8},
		},
	}
}

// TestEvaluate verifies first-match selection and the half-open ranges.
func TestEvaluate(t *testing.T) {
	cat := slope()
	cat.Formulas = append(cat.Formulas, Formula{Kind: Void, Min: 16, Max: 20})

	tests := []struct {
		name   string
		input  float64
		want   float64
		wantOK bool
	}{
		{"ramp start", 0, 16, true},
		{"ramp middle", 4, 12, true},
		{"boundary belongs to next range", 8, 8, true},
		{"flat end", 15.5, 8, true},
		{"void range", 17, 0, false},
		{"below all ranges", -1, 0, false},
		{"above all ranges", 20, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Evaluate(cat, tc.input)
			if ok != tc.wantOK {
				t.Fatalf("Evaluate(%v) ok = %v, want %v", tc.input, ok, tc.wantOK)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Evaluate(%v) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

// TestEvaluatePure verifies repeated evaluation yields identical results.
func TestEvaluatePure(t *testing.T) {
	cat := slope()
	for v := 0.0; v < 16; v += 0.25 {
		a, okA := Evaluate(cat, v)
		b, okB := Evaluate(cat, v)
		if a != b || okA != okB {
			t.Fatalf("Evaluate(%v) not stable: %v,%v vs %v,%v", v, a, okA, b, okB)
		}
	}
}

func TestSolid(t *testing.T) {
	floor := &Category{Name: "floor", Axis: Horizontal, Formulas: []Formula{{Kind: Flat, Min: 0, Max: 16, Offset: 10}}}
	if floor.Solid(4, 5) {
		t.Error("point above floor should not be solid")
	}
	if !floor.Solid(4, 12) {
		t.Error("point below floor should be solid")
	}

	wall := &Category{Name: "wall", Axis: Vertical, Formulas: []Formula{{Kind: Flat, Min: 0, Max: 16, Offset: 12}}}
	if wall.Solid(3, 3) {
		t.Error("point left of wall should not be solid")
	}
	if !wall.Solid(13, 3) {
		t.Error("point right of wall should be solid")
	}
}

// TestValidateOverlap verifies overlapping ranges fail with ConfigurationError.
func TestValidateOverlap(t *testing.T) {
	tests := []struct {
		name     string
		formulas []Formula
		wantErr  bool
	}{
		{"adjacent ranges", []Formula{{Min: 0, Max: 8}, {Min: 8, Max: 16}}, false},
		{"unsorted adjacent", []Formula{{Min: 8, Max: 16}, {Min: 0, Max: 8}}, false},
		{"simple overlap", []Formula{{Min: 0, Max: 9}, {Min: 8, Max: 16}}, true},
		{"nested overlap", []Formula{{Min: 0, Max: 16}, {Min: 4, Max: 6}}, true},
		{"overlap hidden behind gap", []Formula{{Min: 0, Max: 10}, {Min: 1, Max: 2}, {Min: 3, Max: 4}}, true},
		{"empty range", []Formula{{Min: 4, Max: 4}}, true},
		{"no formulas", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&Category{Name: "c", Formulas: tc.formulas})
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				var ce *tile.ConfigurationError
				if !errors.As(err, &ce) {
					t.Errorf("error %v is not a ConfigurationError", err)
				}
			}
		})
	}
}

func TestValidateMissingName(t *testing.T) {
	if err := Validate(&Category{}); err == nil {
		t.Error("expected error for unnamed category")
	}
}

func TestParseKindAndAxis(t *testing.T) {
	for _, name := range []string{"linear", "flat", "void"} {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
		if k.String() != name {
			t.Errorf("ParseKind(%q).String() = %q", name, k.String())
		}
	}
	if _, err := ParseKind("cubic"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if a, err := ParseAxis("v"); err != nil || a != Vertical {
		t.Errorf("ParseAxis(v) = %v, %v", a, err)
	}
}

func TestCostMultiplier(t *testing.T) {
	if got := (&Category{}).CostMultiplier(); got != 1 {
		t.Errorf("default CostMultiplier = %v, want 1", got)
	}
	if got := (&Category{Cost: 2.5}).CostMultiplier(); got != 2.5 {
		t.Errorf("CostMultiplier = %v, want 2.5", got)
	}
}
