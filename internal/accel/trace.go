package accel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadTrace parses a recorded trace with rows "timestamp_ms,x,y,z". A
// header row and blank lines are skipped.
func ReadTrace(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var out []Sample
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("trace: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "timestamp_ms") {
			continue
		}

		ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: invalid timestamp %q: %w", line, rec[0], err)
		}
		var xyz [3]float64
		for i := range xyz {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("trace line %d: invalid value %q: %w", line, rec[i+1], err)
			}
			xyz[i] = v
		}
		out = append(out, Sample{X: xyz[0], Y: xyz[1], Z: xyz[2], Timestamp: ts})
	}
}
