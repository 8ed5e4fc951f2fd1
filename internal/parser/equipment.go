package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chemequip/backend/internal/models"
)

// Normalized names of the required columns.
const (
	ColEquipmentName = "equipment name"
	ColType          = "type"
	ColFlowrate      = "flowrate"
	ColPressure      = "pressure"
	ColTemperature   = "temperature"
)

// MsgInvalidNumeric is the detail returned when a numeric cell cannot be coerced.
const MsgInvalidNumeric = "Numeric columns contain invalid values that cannot be parsed."

type requiredColumn struct {
	key   string
	label string
}

// Canonical order; error messages list missing columns in this order.
var requiredColumns = []requiredColumn{
	{ColEquipmentName, "Equipment Name"},
	{ColType, "Type"},
	{ColFlowrate, "Flowrate"},
	{ColPressure, "Pressure"},
	{ColTemperature, "Temperature"},
}

var numericColumns = []string{ColFlowrate, ColPressure, ColTemperature}

// ColumnLookup maps a normalized header to the header as uploaded.
type ColumnLookup map[string]string

// NormalizeHeader trims and lowercases a header.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// BuildColumnLookup indexes headers by their normalized form.
// When two headers normalize to the same name the later one wins.
func BuildColumnLookup(headers []string) ColumnLookup {
	lookup := make(ColumnLookup, len(headers))
	for _, h := range headers {
		lookup[NormalizeHeader(h)] = h
	}
	return lookup
}

// Missing returns the display labels of absent required columns in canonical order.
func (l ColumnLookup) Missing() []string {
	var missing []string
	for _, rc := range requiredColumns {
		if _, ok := l[rc.key]; !ok {
			missing = append(missing, rc.label)
		}
	}
	return missing
}

// Validate fails with a ValidationError naming every missing column.
func (l ColumnLookup) Validate() error {
	missing := l.Missing()
	if len(missing) == 0 {
		return nil
	}
	return &ValidationError{
		Message: "CSV is missing required columns: " + strings.Join(missing, ", "),
		Columns: missing,
	}
}

// Table is an equipment upload that passed validation and numeric coercion.
type Table struct {
	Columns []string // header order, duplicates disambiguated
	Lookup  ColumnLookup
	Rows    []models.Row
}

// ReadEquipmentCSV parses, validates and coerces an equipment CSV.
// Any invalid numeric cell rejects the whole file.
func ReadEquipmentCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &UnreadableFileError{Err: errors.New("no columns to parse from file")}
	}
	if err != nil {
		return nil, &UnreadableFileError{Err: err}
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	columns := dedupeHeaders(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &UnreadableFileError{Err: err}
		}
		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, &UnreadableFileError{
				Err: fmt.Errorf("expected %d fields in line %d, saw %d", len(columns), line, len(rec)),
			}
		}
		records = append(records, rec)
	}

	lookup := BuildColumnLookup(columns)
	if err := lookup.Validate(); err != nil {
		return nil, err
	}

	numeric := make(map[string]bool, len(numericColumns))
	for _, key := range numericColumns {
		numeric[lookup[key]] = true
	}

	invalid := make(map[string]bool)
	rows := make([]models.Row, 0, len(records))
	for _, rec := range records {
		row := make(models.Row, len(columns))
		for i, col := range columns {
			var raw string
			if i < len(rec) {
				raw = rec[i]
			}
			if !numeric[col] {
				row[col] = models.StringCell(raw)
				continue
			}
			f, ok := coerceNumber(raw)
			if !ok {
				invalid[col] = true
				continue
			}
			row[col] = models.NumberCell(f)
		}
		rows = append(rows, row)
	}

	if len(invalid) > 0 {
		var bad []string
		for _, rc := range requiredColumns {
			if invalid[lookup[rc.key]] {
				bad = append(bad, rc.label)
			}
		}
		return nil, &ValidationError{Message: MsgInvalidNumeric, Columns: bad}
	}

	return &Table{Columns: columns, Lookup: lookup, Rows: rows}, nil
}

// coerceNumber reports false for empty, unparsable, NaN and infinite values.
func coerceNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// dedupeHeaders names blank headers "Unnamed: <index>" and suffixes exact
// duplicates with ".1", ".2", ... so every row key is unique.
func dedupeHeaders(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	counts := make(map[string]int)
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for taken[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
