package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

const (
	columnName = "station_name"
	columnID   = "station_id"
)

// Header is the catalog file's header row.
var Header = []string{columnName, columnID, weather.ColumnRegion}

// File is the delimited station catalog on disk.
type File struct {
	path string
}

var _ weather.Catalog = (*File)(nil)

// NewFile returns a catalog backed by the file at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the catalog's location.
func (f *File) Path() string {
	return f.path
}

// Reset truncates the catalog file, creating its directory if needed.
func (f *File) Reset() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", weather.ErrWrite, err)
	}
	file, err := os.Create(f.path)
	if err != nil {
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}
	return file.Close()
}

// AppendRegion parses the markup file and appends its stations tagged with
// region. A missing or malformed markup file writes nothing.
func (f *File) AppendRegion(region, markupPath string) (int, error) {
	in, err := os.Open(markupPath)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", weather.ErrMissingInput, markupPath)
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", markupPath, err)
	}
	defer in.Close()

	stations, err := ParseMarkup(in, region)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", markupPath, err)
	}

	if err := f.Append(stations); err != nil {
		return 0, err
	}
	return len(stations), nil
}

// Append writes stations at the end of the catalog. The header is written
// only when the file is new or empty.
func (f *File) Append(stations []weather.Station) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", weather.ErrWrite, err)
	}

	out, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}

	info, err := out.Stat()
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}

	if err := writeRows(out, stations, info.Size() == 0); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}
	return nil
}

func writeRows(w io.Writer, stations []weather.Station, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Header); err != nil {
			return err
		}
	}
	for _, s := range stations {
		if err := cw.Write([]string{s.Name, s.ID, s.Region}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Stations reads every row of the catalog in file order. Header rows,
// including ones repeated by earlier appends, are skipped.
func (f *File) Stations() ([]weather.Station, error) {
	in, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", weather.ErrMissingInput, f.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer in.Close()

	return ReadStations(in)
}

// ReadStations parses catalog rows from r.
func ReadStations(r io.Reader) ([]weather.Station, error) {
	var (
		cols weather.ColumnIndex
		out  []weather.Station
	)

	cr := weather.NewCSVReader(r)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read catalog: %v", weather.ErrMalformedInput, err)
		}

		if cols == nil || weather.IsHeader(rec, columnID, weather.ColumnRegion) {
			cols = weather.IndexColumns(rec)
			continue
		}

		out = append(out, weather.Station{
			ID:     cols.Cell(rec, columnID),
			Name:   cols.Cell(rec, columnName),
			Region: cols.Cell(rec, weather.ColumnRegion),
		})
	}

	return out, nil
}
