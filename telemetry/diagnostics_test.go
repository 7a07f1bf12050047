package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pthm-cable/tilegrid/circuit"
	"github.com/pthm-cable/tilegrid/extract"
	"github.com/pthm-cable/tilegrid/registry"
	"github.com/pthm-cable/tilegrid/tile"
)

func TestDiagnosticsRecordMiss(t *testing.T) {
	d := NewDiagnostics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.RecordMiss(circuit.LookupMiss{Circuit: "road", Mask: tile.MaskOf(tile.East), At: tile.P(i, 0)})
		}(i)
	}
	wg.Wait()
	d.RecordMiss(circuit.LookupMiss{Circuit: "river", Mask: 0})
	d.RecordMiss(circuit.LookupMiss{Circuit: "road", Mask: 0})

	misses := d.Misses()
	if len(misses) != 3 {
		t.Fatalf("Misses = %+v, want 3 entries", misses)
	}
	if misses[0].Circuit != "river" || misses[1].Mask != 0 || misses[2].Count != 8 {
		t.Errorf("ordering or counts wrong: %+v", misses)
	}
	if misses[2].MaskBin != "0b00000001" {
		t.Errorf("MaskBin = %q", misses[2].MaskBin)
	}
	if d.TotalMisses() != 10 {
		t.Errorf("TotalMisses = %d, want 10", d.TotalMisses())
	}

	d.Reset()
	if d.TotalMisses() != 0 || len(d.Ambiguities()) != 0 {
		t.Error("Reset did not clear diagnostics")
	}
}

func newRoadRegistry() *registry.Registry {
	r := registry.New()
	for i := 0; i < 10; i++ {
		r.AssignGroup(tile.R(1, i), "road")
	}
	return r
}

func TestDiagnosticsAsResolverSink(t *testing.T) {
	reg := newRoadRegistry()
	c := circuit.NewBuilder("road", "road").Isolated(tile.R(1, 0)).Default(tile.R(1, 9)).Build()
	d := NewDiagnostics()
	res := circuit.NewResolver(reg, d)

	g := tile.NewGrid(3, 1, tile.R(1, 9))
	res.Relax(g, g.Rect(), c)
	if d.TotalMisses() == 0 {
		t.Error("expected misses for undeclared masks")
	}
}

func TestOutputManagerWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	pc := NewPerfCollector(4)
	pc.StartTick()
	pc.StartPhase(PhasePlan)
	pc.EndTick()
	for i := int32(1); i <= 2; i++ {
		if err := om.WritePerf(pc.Stats(), i); err != nil {
			t.Fatal(err)
		}
	}
	if err := om.WritePaths(NewPathWindow().Flush(1)); err != nil {
		t.Fatal(err)
	}

	d := NewDiagnostics()
	d.RecordMiss(circuit.LookupMiss{Circuit: "road", Mask: 0x11, At: tile.P(2, 3)})
	d.AddAmbiguities([]extract.Ambiguity{{Level: 1, At: tile.P(4, 5), Center: tile.R(0, 1), Groups: []string{"ground", "sand", "water"}}})
	if err := om.WriteDiagnostics(d); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	perf := readFile(t, filepath.Join(dir, "perf.csv"))
	if lines := strings.Count(perf, "\n"); lines != 3 {
		t.Errorf("perf.csv has %d lines, want header + 2 rows:\n%s", lines, perf)
	}
	if amb := readFile(t, filepath.Join(dir, "ambiguities.csv")); !strings.Contains(amb, "ground sand water") {
		t.Errorf("ambiguities.csv = %q", amb)
	}
	if m := readFile(t, filepath.Join(dir, "misses.csv")); !strings.Contains(m, "road,0b00010001,1,2,3") {
		t.Errorf("misses.csv = %q", m)
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteDiagnostics(NewDiagnostics()); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
