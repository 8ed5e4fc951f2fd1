package parser

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_Sample(t *testing.T) {
	table, err := ReadEquipmentCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	s := Summarize(table)

	assert.Equal(t, 3, s.TotalEquipment)
	assert.Equal(t, len(table.Rows), s.TotalEquipment)
	assert.Equal(t, 113.33, s.AvgFlowrate)
	assert.Equal(t, 55.0, s.AvgPressure)
	assert.Equal(t, 300.0, s.AvgTemperature)
	assert.Equal(t, map[string]int{"Pump": 2, "Valve": 1}, s.TypeDistribution)
}

func TestSummarize_Empty(t *testing.T) {
	table, err := ReadEquipmentCSV(strings.NewReader("Equipment Name,Type,Flowrate,Pressure,Temperature\n"))
	require.NoError(t, err)

	s := Summarize(table)

	assert.Equal(t, 0, s.TotalEquipment)
	assert.Zero(t, s.AvgFlowrate)
	assert.Zero(t, s.AvgPressure)
	assert.Zero(t, s.AvgTemperature)
	assert.NotNil(t, s.TypeDistribution)
	assert.Empty(t, s.TypeDistribution)
}

func TestSummarize_TypeLabelsAreRaw(t *testing.T) {
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"A,Pump,1,1,1\n" +
		"B,pump,1,1,1\n" +
		"C, Pump,1,1,1\n" +
		"D,,1,1,1\n"
	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)

	s := Summarize(table)

	// Labels are counted as uploaded; blank labels are not counted.
	assert.Equal(t, map[string]int{"Pump": 1, "pump": 1, " Pump": 1}, s.TypeDistribution)
	assert.Equal(t, 4, s.TotalEquipment)
}

func TestSummarize_MeanRoundsHalfAwayFromZero(t *testing.T) {
	// mean(1.00, 1.01) is 1.005
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"A,Pump,1.00,-1.00,0\n" +
		"B,Pump,1.01,-1.01,0\n"
	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)

	s := Summarize(table)
	assert.Equal(t, 1.01, s.AvgFlowrate)
	assert.Equal(t, -1.01, s.AvgPressure)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{-1.005, -1.01},
		{2.675, 2.68},
		{0.125, 0.13},
		{0.124, 0.12},
		{113.33333333, 113.33},
		{10, 10},
		{0, 0},
		{1.995, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestSummarize_LargeValuesStayFinite(t *testing.T) {
	input := "Equipment Name,Type,Flowrate,Pressure,Temperature\n" +
		"A,Pump,1e308,1.7976931348623157e308,-1e308\n" +
		"B,Pump,1e308,1.7976931348623157e308,-1e308\n"
	table, err := ReadEquipmentCSV(strings.NewReader(input))
	require.NoError(t, err)

	s := Summarize(table)

	assert.Equal(t, 1e308, s.AvgFlowrate)
	assert.Equal(t, math.MaxFloat64, s.AvgPressure)
	assert.Equal(t, -1e308, s.AvgTemperature)
}
