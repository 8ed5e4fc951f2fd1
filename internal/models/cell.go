package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// CellKind tags the value held by a Cell.
type CellKind uint8

const (
	CellString CellKind = iota
	CellNumber
)

// Cell is a single CSV value: either the raw string or a coerced number.
type Cell struct {
	Kind CellKind
	Str  string
	Num  float64
}

// StringCell wraps a raw string value.
func StringCell(s string) Cell {
	return Cell{Kind: CellString, Str: s}
}

// NumberCell wraps a coerced numeric value.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Num: f}
}

// IsNumber reports whether the cell holds a number.
func (c Cell) IsNumber() bool {
	return c.Kind == CellNumber
}

// String formats the cell the way it appears in reports.
// Whole numbers print without a fractional part.
func (c Cell) String() string {
	if c.Kind == CellNumber {
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	}
	return c.Str
}

// MarshalJSON encodes numbers as JSON numbers and strings as JSON strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Kind == CellNumber {
		return json.Marshal(c.Num)
	}
	return json.Marshal(c.Str)
}

// UnmarshalJSON accepts a JSON string, number or null (read as an empty string).
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return fmt.Errorf("empty cell value")
	case bytes.Equal(data, []byte("null")):
		*c = StringCell("")
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = StringCell(s)
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("cell is neither string nor number: %w", err)
		}
		*c = NumberCell(f)
		return nil
	}
}

var (
	_ msgpack.CustomEncoder = Cell{}
	_ msgpack.CustomDecoder = (*Cell)(nil)
)

// EncodeMsgpack mirrors MarshalJSON for msgpack responses.
func (c Cell) EncodeMsgpack(enc *msgpack.Encoder) error {
	if c.Kind == CellNumber {
		return enc.EncodeFloat64(c.Num)
	}
	return enc.EncodeString(c.Str)
}

// DecodeMsgpack mirrors UnmarshalJSON for msgpack payloads.
func (c *Cell) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = StringCell("")
	case string:
		*c = StringCell(x)
	case float64:
		*c = NumberCell(x)
	case float32:
		*c = NumberCell(float64(x))
	case int8:
		*c = NumberCell(float64(x))
	case int16:
		*c = NumberCell(float64(x))
	case int32:
		*c = NumberCell(float64(x))
	case int64:
		*c = NumberCell(float64(x))
	case uint8:
		*c = NumberCell(float64(x))
	case uint16:
		*c = NumberCell(float64(x))
	case uint32:
		*c = NumberCell(float64(x))
	case uint64:
		*c = NumberCell(float64(x))
	default:
		return fmt.Errorf("unsupported msgpack cell type %T", v)
	}
	return nil
}

// Row maps an uploaded column header to its cell.
type Row map[string]Cell
