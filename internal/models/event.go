package models

import "time"

// DatasetEvent is published after the dataset window changes.
type DatasetEvent struct {
	Type       string    `json:"type"` // "dataset.created"
	DatasetID  string    `json:"dataset_id"`
	FileName   string    `json:"file_name"`
	UploadedAt time.Time `json:"uploaded_at"`
	Summary    Summary   `json:"summary"`
	Pruned     int       `json:"pruned"`
}

const EventDatasetCreated = "dataset.created"
