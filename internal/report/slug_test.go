package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sample.csv", "samplecsv"},
		{"Plant A (2024).csv", "plant-a-2024csv"},
		{"  Spaces   and---dashes  ", "spaces-and-dashes"},
		{"Température Élevée.csv", "temperature-eleveecsv"},
		{"under_score", "under_score"},
		{"_leading and trailing_", "leading-and-trailing"},
		{"数据.csv", "csv"},
		{"!!!", "dataset"},
		{"", "dataset"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "equipment-report-file-0csv.pdf", Filename("file-0.csv"))
	assert.Equal(t, "equipment-report-dataset.pdf", Filename("???"))
	assert.Equal(t, "equipment-report-file-0csv", Title("file-0.csv"))
}
