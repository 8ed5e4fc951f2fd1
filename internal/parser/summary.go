package parser

import (
	"math"

	"github.com/chemequip/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Summarize computes the dataset summary for a validated table.
// An empty table summarizes to zero counts and zero averages.
func Summarize(t *Table) models.Summary {
	s := models.Summary{
		TotalEquipment:   len(t.Rows),
		AvgFlowrate:      columnMean(t.Rows, t.Lookup[ColFlowrate]),
		AvgPressure:      columnMean(t.Rows, t.Lookup[ColPressure]),
		AvgTemperature:   columnMean(t.Rows, t.Lookup[ColTemperature]),
		TypeDistribution: make(map[string]int),
	}

	typeCol := t.Lookup[ColType]
	for _, row := range t.Rows {
		label := row[typeCol].String()
		if label == "" {
			continue
		}
		s.TypeDistribution[label]++
	}
	return s
}

// columnMean sums in decimal so that large finite values cannot overflow
// to Inf before the division.
func columnMean(rows []models.Row, col string) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(decimal.NewFromFloat(row[col].Num))
	}
	mean, _ := sum.Div(decimal.NewFromInt(int64(len(rows)))).Float64()
	return Round2(mean)
}

// Round2 rounds half away from zero at two decimals, working on the shortest
// decimal form of x so that 1.005 becomes 1.01.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	f, _ := decimal.NewFromFloat(x).Round(2).Float64()
	return f
}
