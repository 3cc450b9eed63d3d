package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadReport counts rows seen while reading the combined observations file.
type ReadReport struct {
	Rows       int `json:"rows"`
	HeaderRows int `json:"headerRows"`
	MissingKey int `json:"missingKey"`
	BadNumber  int `json:"badNumber"`
	Malformed  int `json:"malformed"`
}

// Dropped is the number of data rows that produced no observation.
func (r ReadReport) Dropped() int {
	return r.MissingKey + r.BadNumber + r.Malformed
}

type dropReason int

const (
	keep dropReason = iota
	dropMissingKey
	dropBadNumber
)

// ColumnIndex maps header names to their position in a record.
type ColumnIndex map[string]int

// IndexColumns records the position of every header name.
func IndexColumns(header []string) ColumnIndex {
	idx := make(ColumnIndex, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return idx
}

// Cell returns the trimmed value of column name, or "" when the record is short
// or the column is unknown.
func (c ColumnIndex) Cell(rec []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// IsHeader reports whether rec repeats a header carrying all of names.
func IsHeader(rec []string, names ...string) bool {
	seen := make(map[string]bool, len(rec))
	for _, v := range rec {
		seen[strings.TrimSpace(strings.TrimPrefix(v, "\ufeff"))] = true
	}
	for _, n := range names {
		if !seen[n] {
			return false
		}
	}
	return true
}

// NewCSVReader returns a reader tolerant of the ragged rows and stray quotes
// found in concatenated provider responses.
func NewCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// ReadObservations parses the combined raw observations file.
//
// The first record is the header. Any later record that repeats a header
// (one per appended provider response) re-binds the column positions.
// Rows without a station or date, or with a non-numeric value in any of the
// numeric fields, are dropped whole and counted in the report.
func ReadObservations(r io.Reader) ([]RawObservation, ReadReport, error) {
	var (
		report ReadReport
		cols   ColumnIndex
		out    []RawObservation
	)

	cr := NewCSVReader(r)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				report.Malformed++
				continue
			}
			return nil, report, fmt.Errorf("read observations: %w", err)
		}

		if cols == nil || IsHeader(rec, ColumnStation, ColumnDate) {
			cols = IndexColumns(rec)
			report.HeaderRows++
			continue
		}

		report.Rows++
		obs, reason := parseObservation(rec, cols)
		switch reason {
		case dropMissingKey:
			report.MissingKey++
		case dropBadNumber:
			report.BadNumber++
		default:
			out = append(out, obs)
		}
	}

	return out, report, nil
}

func parseObservation(rec []string, cols ColumnIndex) (RawObservation, dropReason) {
	obs := RawObservation{
		StationID: cols.Cell(rec, ColumnStation),
		Date:      cols.Cell(rec, ColumnDate),
	}
	if obs.StationID == "" || obs.Date == "" {
		return RawObservation{}, dropMissingKey
	}

	for i, f := range Fields {
		v, err := parseOptionalFloat(cols.Cell(rec, string(f)))
		if err != nil {
			return RawObservation{}, dropBadNumber
		}
		obs.Values[i] = v
	}
	return obs, keep
}

// parseOptionalFloat returns nil for blank input and an error for text that is
// not a number.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RegionIndex maps station IDs to region codes. Stations without an ID or
// region are ignored and a later entry for the same ID replaces an earlier one.
func RegionIndex(stations []Station) map[string]string {
	idx := make(map[string]string, len(stations))
	for _, s := range stations {
		id := strings.TrimSpace(s.ID)
		region := strings.TrimSpace(s.Region)
		if id == "" || region == "" {
			continue
		}
		idx[id] = region
	}
	return idx
}
