package weather

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// AggregateHeader is the header row of the aggregate output file.
func AggregateHeader() []string {
	header := []string{ColumnRegion, ColumnDate}
	for _, f := range Fields {
		header = append(header, string(f))
	}
	return header
}

// WriteAggregates writes a header followed by one row per aggregate.
func WriteAggregates(w io.Writer, aggs []RegionDayAggregate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AggregateHeader()); err != nil {
		return err
	}

	row := make([]string, 2+fieldCount)
	for _, a := range aggs {
		row[0] = a.Region
		row[1] = a.Date
		for i, v := range a.Values() {
			row[2+i] = FormatValue(v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders a mean in its shortest form with at least one decimal
// place ("32.0", "12.35"). Nil renders as an empty cell.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	if !math.IsNaN(*v) && !math.IsInf(*v, 0) && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ReadAggregates parses a file written by WriteAggregates. Rows that lack a
// region or date, or carry a non-numeric value, are skipped.
func ReadAggregates(r io.Reader) ([]RegionDayAggregate, error) {
	var (
		cols ColumnIndex
		out  []RegionDayAggregate
	)

	cr := NewCSVReader(r)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read aggregates: %v", ErrMalformedInput, err)
		}

		if cols == nil || IsHeader(rec, ColumnRegion, ColumnDate) {
			cols = IndexColumns(rec)
			continue
		}

		agg := RegionDayAggregate{
			Region: cols.Cell(rec, ColumnRegion),
			Date:   cols.Cell(rec, ColumnDate),
		}
		if agg.Region == "" || agg.Date == "" {
			continue
		}

		var (
			values Values
			bad    bool
		)
		for i, f := range Fields {
			v, err := parseOptionalFloat(cols.Cell(rec, string(f)))
			if err != nil {
				bad = true
				break
			}
			values[i] = v
		}
		if bad {
			continue
		}
		agg.setValues(values)
		out = append(out, agg)
	}

	return out, nil
}
