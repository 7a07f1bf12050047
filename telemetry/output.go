package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/tilegrid/config"
)

// AmbiguityRow is the CSV form of an extraction ambiguity.
type AmbiguityRow struct {
	Level  int    `csv:"level"`
	X      int    `csv:"x"`
	Y      int    `csv:"y"`
	Center string `csv:"center"`
	Groups string `csv:"groups"` // space separated
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	perfFile  *os.File
	pathsFile *os.File

	perfHeaderWritten  bool
	pathsHeaderWritten bool
}

// NewOutputManager creates the output directory and its streaming files.
// Returns nil if dir is empty (output disabled); all methods accept a nil
// receiver.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	f, err := os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	f, err = os.Create(filepath.Join(dir, "paths.csv"))
	if err != nil {
		om.perfFile.Close()
		return nil, fmt.Errorf("creating paths.csv: %w", err)
	}
	om.pathsFile = f
	return om, nil
}

// WriteConfig saves the run configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(windowEnd)}
	if err := appendCSV(om.perfFile, records, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WritePaths appends a search statistics record to paths.csv.
func (om *OutputManager) WritePaths(stats PathStats) error {
	if om == nil {
		return nil
	}
	if err := appendCSV(om.pathsFile, []PathStats{stats}, &om.pathsHeaderWritten); err != nil {
		return fmt.Errorf("writing paths: %w", err)
	}
	return nil
}

// appendCSV writes the header only on the first call for a file.
func appendCSV(f *os.File, records any, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteDiagnostics writes misses.csv and ambiguities.csv, replacing any
// previous contents.
func (om *OutputManager) WriteDiagnostics(d *Diagnostics) error {
	if om == nil {
		return nil
	}
	if err := writeCSVFile(filepath.Join(om.dir, "misses.csv"), d.Misses()); err != nil {
		return fmt.Errorf("writing misses: %w", err)
	}

	amb := d.Ambiguities()
	rows := make([]AmbiguityRow, len(amb))
	for i, a := range amb {
		rows[i] = AmbiguityRow{
			Level:  a.Level,
			X:      a.At.X,
			Y:      a.At.Y,
			Center: a.Center.String(),
			Groups: strings.Join(a.Groups, " "),
		}
	}
	if err := writeCSVFile(filepath.Join(om.dir, "ambiguities.csv"), rows); err != nil {
		return fmt.Errorf("writing ambiguities: %w", err)
	}
	return nil
}

func writeCSVFile(path string, records any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(records, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, f := range []*os.File{om.perfFile, om.pathsFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
