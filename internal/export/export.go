// Package export writes a session's labeled samples to a CSV file.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/semg-lab/semgcal/internal/sample"
)

// DefaultPath is the export file used when none is configured.
const DefaultPath = "calibration_data.csv"

// LabelColumn names the stimulus column.
const LabelColumn = "stimulus"

// Result describes what Write did.
type Result struct {
	Path    string
	Rows    int // data rows, excluding the header
	Written bool
}

// Header returns electrode_1..electrode_N followed by the stimulus column.
func Header() []string {
	header := make([]string, 0, sample.NumChannels+1)
	for i := 1; i <= sample.NumChannels; i++ {
		header = append(header, fmt.Sprintf("electrode_%d", i))
	}
	return append(header, LabelColumn)
}

// FormatValue renders v in the shortest decimal form that parses back to
// v. Integral values keep a trailing ".0".
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

// Write exports samples to path. An empty slice writes nothing and returns
// a Result with Written false. The file is written next to path under a
// temporary name and renamed into place, so path is never left half written.
func Write(samples []sample.Sample, path string) (Result, error) {
	res := Result{Path: path}
	if len(samples) == 0 {
		return res, nil
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return res, fmt.Errorf("creating export file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(Header()); err != nil {
		return res, fmt.Errorf("writing header: %w", err)
	}
	row := make([]string, sample.NumChannels+1)
	for _, s := range samples {
		for i, v := range s.Channels {
			row[i] = FormatValue(v)
		}
		row[sample.NumChannels] = strconv.Itoa(int(s.Label))
		if err := w.Write(row); err != nil {
			return res, fmt.Errorf("writing row %d: %w", res.Rows+1, err)
		}
		res.Rows++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return res, fmt.Errorf("flushing export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return res, fmt.Errorf("closing export file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return res, fmt.Errorf("setting export file mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return res, fmt.Errorf("moving export file into place: %w", err)
	}
	committed = true

	res.Written = true
	return res, nil
}
