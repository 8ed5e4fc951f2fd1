package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Equipment Name,Type,Flowrate,Pressure,Temperature
Pump A,Pump,100,50,300
Pump B,Pump,150,60,310
Valve C,Valve,90,55,290
`

func TestReadEquipmentCSV_Sample(t *testing.T) {
	table, err := ReadEquipmentCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"}, table.Columns)
	require.Len(t, table.Rows, 3)

	first := table.Rows[0]
	assert.Equal(t, "Pump A", first["Equipment Name"].Str)
	assert.False(t, first["Equipment Name"].IsNumber())
	assert.True(t, first["Flowrate"].IsNumber())
	assert.Equal(t, 100.0, first["Flowrate"].Num)
	assert.Equal(t, 300.0, first["Temperature"].Num)
}

func TestReadEquipmentCSV_HeaderNormalization(t *testing.T) {
	input := "  EQUIPMENT NAME ,type,  FlowRate,PRESSURE,Temperature  \nX,Pump,1,2,3\n"

	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)

	// Rows keep the headers exactly as uploaded.
	assert.Equal(t, "  EQUIPMENT NAME ", table.Lookup[ColEquipmentName])
	assert.Equal(t, "  FlowRate", table.Lookup[ColFlowrate])
	assert.Equal(t, 1.0, table.Rows[0]["  FlowRate"].Num)
	assert.Equal(t, "Pump", table.Rows[0]["type"].Str)
}

func TestReadEquipmentCSV_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		message string
		columns []string
	}{
		{
			name:    "one missing",
			header:  "Equipment Name,Type,Flowrate,Pressure",
			message: "CSV is missing required columns: Temperature",
			columns: []string{"Temperature"},
		},
		{
			name:    "canonical order regardless of header order",
			header:  "Temperature,Pressure,Equipment Name",
			message: "CSV is missing required columns: Type, Flowrate",
			columns: []string{"Type", "Flowrate"},
		},
		{
			name:    "all missing",
			header:  "a,b,c",
			message: "CSV is missing required columns: Equipment Name, Type, Flowrate, Pressure, Temperature",
			columns: []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEquipmentCSV(strings.NewReader(tt.header + "\n"))
			require.Error(t, err)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.message, vErr.Error())
			assert.Equal(t, tt.columns, vErr.Columns)
		})
	}
}

func TestReadEquipmentCSV_InvalidNumeric(t *testing.T) {
	tests := []struct {
		name    string
		row     string
		columns []string
	}{
		{"text in flowrate", "P,Pump,fast,50,300", []string{"Flowrate"}},
		{"empty pressure", "P,Pump,100,,300", []string{"Pressure"}},
		{"nan temperature", "P,Pump,100,50,NaN", []string{"Temperature"}},
		{"infinite flowrate", "P,Pump,Inf,50,300", []string{"Flowrate"}},
		{"short row leaves numerics empty", "P,Pump,100", []string{"Pressure", "Temperature"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "Equipment Name,Type,Flowrate,Pressure,Temperature\nOK,Pump,1,2,3\n" + tt.row + "\n"
			_, err := ReadEquipmentCSV(strings.NewReader(input))

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, MsgInvalidNumeric, vErr.Message)
			assert.Equal(t, tt.columns, vErr.Columns)
		})
	}
}

func TestReadEquipmentCSV_NumericWhitespaceAndExponent(t *testing.T) {
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature\nP,Pump, 1e2 ,-5.5,0\n"

	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 100.0, table.Rows[0]["Flowrate"].Num)
	assert.Equal(t, -5.5, table.Rows[0]["Pressure"].Num)
}

func TestReadEquipmentCSV_Unreadable(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty body", ""},
		{"only blank lines", "\n\n"},
		{"too many fields", "Equipment Name,Type,Flowrate,Pressure,Temperature\nA,B,1,2,3,4\n"},
		{"bare quote", "Equipment Name,Type,Flowrate,Pressure,Temperature\nA \"x\",B,1,2,3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEquipmentCSV(strings.NewReader(tt.input))

			var uErr *UnreadableFileError
			require.True(t, errors.As(err, &uErr), "expected UnreadableFileError, got %v", err)
			assert.NotEmpty(t, uErr.Error())
		})
	}
}

func TestReadEquipmentCSV_TooManyFieldsNamesLine(t *testing.T) {
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature\nA,B,1,2,3\nA,B,1,2,3,4\n"

	_, err := ReadEquipmentCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 fields in line 3, saw 6")
}

func TestReadEquipmentCSV_HeaderOnly(t *testing.T) {
	table, err := ReadEquipmentCSV(strings.NewReader("Equipment Name,Type,Flowrate,Pressure,Temperature\n"))
	require.NoError(t, err)
	assert.NotNil(t, table.Rows)
	assert.Empty(t, table.Rows)
}

func TestReadEquipmentCSV_BOMAndBlankLines(t *testing.T) {
	input := "\ufeffEquipment Name,Type,Flowrate,Pressure,Temperature\n\nA,Pump,1,2,3\n\n"

	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "Equipment Name", table.Columns[0])
	assert.Len(t, table.Rows, 1)
}

func TestReadEquipmentCSV_ExtraAndDuplicateColumns(t *testing.T) {
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature,Notes,Notes,\nA,Pump,1,2,3,n1,n2,x\n"

	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Equipment Name", "Type", "Flowrate", "Pressure", "Temperature", "Notes", "Notes.1", "Unnamed: 7"}, table.Columns)

	row := table.Rows[0]
	assert.Equal(t, "n1", row["Notes"].Str)
	assert.Equal(t, "n2", row["Notes.1"].Str)
	assert.Equal(t, "x", row["Unnamed: 7"].Str)
}

func TestBuildColumnLookup_LaterHeaderWins(t *testing.T) {
	lookup := BuildColumnLookup([]string{"Type", " TYPE "})
	assert.Equal(t, " TYPE ", lookup[ColType])
}
