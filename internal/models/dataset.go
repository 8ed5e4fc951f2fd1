package models

import "time"

// Summary is the fixed aggregate computed for every accepted upload.
type Summary struct {
	TotalEquipment   int            `json:"total_equipment"`
	AvgFlowrate      float64        `json:"avg_flowrate"`
	AvgPressure      float64        `json:"avg_pressure"`
	AvgTemperature   float64        `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

// Dataset is one stored CSV upload together with its summary and rows.
type Dataset struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Summary    Summary   `json:"summary"`
	Columns    []string  `json:"columns"`
	Data       []Row     `json:"data"`

	// Seq orders records that share a timestamp.
	Seq int64 `json:"-"`
}

// DatasetSummary is the history view of a dataset, without its rows.
type DatasetSummary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Summary    Summary   `json:"summary"`
}

// SummaryView drops the row payload.
func (d *Dataset) SummaryView() DatasetSummary {
	return DatasetSummary{
		ID:         d.ID,
		FileName:   d.FileName,
		UploadedAt: d.UploadedAt,
		Summary:    d.Summary,
	}
}

// NewDataset is what the upload pipeline hands to the store.
type NewDataset struct {
	FileName string
	Summary  Summary
	Columns  []string
	Data     []Row
}
