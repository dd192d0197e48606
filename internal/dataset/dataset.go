// Package dataset loads historical weather observations from CSV or Excel
// files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-type-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Column names of the weather classification dataset.
const (
	ColTemperature         = "Temperature"
	ColHumidity            = "Humidity"
	ColWindSpeed           = "Wind Speed"
	ColPrecipitation       = "Precipitation (%)"
	ColCloudCover          = "Cloud Cover"
	ColAtmosphericPressure = "Atmospheric Pressure"
	ColUVIndex             = "UV Index"
	ColSeason              = "Season"
	ColVisibility          = "Visibility (km)"
	ColLocation            = "Location"
	ColWeatherType         = "Weather Type"
)

var requiredColumns = []string{
	ColTemperature, ColHumidity, ColWindSpeed, ColPrecipitation, ColCloudCover,
	ColAtmosphericPressure, ColUVIndex, ColSeason, ColVisibility, ColLocation,
	ColWeatherType,
}

// LoadError reports why the dataset could not be loaded. Row is the 1-based
// file line (the header is row 1) and is zero for file-level problems.
type LoadError struct {
	Path   string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("load dataset %s: row %d column %q: %v", e.Path, e.Row, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("load dataset %s: row %d: %v", e.Path, e.Row, e.Err)
	default:
		return fmt.Sprintf("load dataset %s: %v", e.Path, e.Err)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads every observation from a .csv or .xlsx file. For workbooks the
// first sheet is used.
func Load(path string) ([]domain.Observation, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		err = fmt.Errorf("unsupported file extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	observations, err := Parse(rows)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return observations, nil
}

// ReadCSV parses CSV content from r, such as stdin.
func ReadCSV(r io.Reader) ([]domain.Observation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return Parse(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetRows(f.GetSheetName(0))
}

// Parse converts a header row plus data rows into observations.
func Parse(rows [][]string) ([]domain.Observation, error) {
	if len(rows) < 2 {
		return nil, &LoadError{Err: errors.New("need a header row and at least one data row")}
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &LoadError{Row: 1, Err: fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))}
	}

	observations := make([]domain.Observation, 0, len(rows)-1)
	for i, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		p := rowParser{rec: rec, index: index, row: i + 2}
		o := domain.Observation{
			Temperature:         p.number(ColTemperature),
			Humidity:            p.number(ColHumidity),
			WindSpeed:           p.number(ColWindSpeed),
			Precipitation:       p.number(ColPrecipitation),
			CloudCover:          p.text(ColCloudCover),
			AtmosphericPressure: p.number(ColAtmosphericPressure),
			UVIndex:             p.number(ColUVIndex),
			Season:              p.text(ColSeason),
			Visibility:          p.number(ColVisibility),
			Location:            p.text(ColLocation),
			WeatherType:         p.text(ColWeatherType),
		}
		if p.err != nil {
			return nil, p.err
		}
		observations = append(observations, o)
	}
	return observations, nil
}

// rowParser reads typed cells from one record and keeps the first error.
type rowParser struct {
	rec   []string
	index map[string]int
	row   int
	err   error
}

func (p *rowParser) cell(col string) string {
	i := p.index[col]
	if i >= len(p.rec) {
		return ""
	}
	return strings.TrimSpace(p.rec[i])
}

func (p *rowParser) text(col string) string {
	return p.cell(col)
}

func (p *rowParser) number(col string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.cell(col), 64)
	if err == nil && (math.IsNaN(v) || math.IsInf(v, 0)) {
		err = fmt.Errorf("non-finite value %q", p.cell(col))
	}
	if err != nil {
		p.err = &LoadError{Row: p.row, Column: col, Err: err}
		return 0
	}
	return v
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
