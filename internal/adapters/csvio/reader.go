package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DisplayRow is one leaderboard line as a display reads it.
type DisplayRow struct {
	Name  string
	Total float64
}

// ReadDisplayRows reads a leaderboard export. The header must contain "Name" and "Total";
// rows without a name are dropped, unparsable totals count as 0, and the result is sorted
// by total descending (stable).
func ReadDisplayRows(r io.Reader) ([]DisplayRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idxName, idxTotal := index(header, "Name"), index(header, "Total")
	if idxName < 0 || idxTotal < 0 {
		return nil, fmt.Errorf("%w: need \"Name\" and \"Total\", got %v", ErrMissingColumns, header)
	}

	var (
		out  []DisplayRow
		seen int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", seen+1, err)
		}
		seen++
		name := field(rec, idxName)
		if strings.TrimSpace(name) == "" {
			continue
		}
		out = append(out, DisplayRow{Name: name, Total: number(field(rec, idxTotal))})
	}
	if seen == 0 {
		return nil, ErrNoRows
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

func index(header []string, name string) int {
	for i, h := range header {
		if strings.TrimPrefix(h, "\ufeff") == name {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
