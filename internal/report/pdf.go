// Package report renders stored datasets as PDF documents.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chemequip/backend/internal/models"
	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	fontFamily     = "Helvetica"
	margin         = 50.0
	sampleRowLimit = 5
	maxRowChars    = 1000
)

// Renderer turns datasets into PDF reports.
type Renderer struct {
	// Location is the zone the upload timestamp is printed in.
	Location *time.Location
	// Compress deflates page streams; tests switch it off to inspect text.
	Compress bool
}

// NewRenderer returns a renderer printing times in loc (UTC when nil).
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Location: loc, Compress: true}
}

// Render produces the PDF bytes for ds. Output is deterministic for a given
// dataset: the document dates are pinned to the upload time.
func (r *Renderer) Render(ds *models.Dataset) ([]byte, error) {
	pdf, err := r.build(ds)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) build(ds *models.Dataset) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetTitle(Title(ds.FileName), false)
	pdf.SetCreationDate(ds.UploadedAt)
	pdf.SetModificationDate(ds.UploadedAt)

	_, height := pdf.GetPageSize()
	w := &writer{
		pdf:    pdf,
		tr:     toCP1252,
		y:      margin,
		bottom: height - margin,
	}
	pdf.AddPage()

	w.font("B", 18)
	w.line("Chemical Equipment Report", 30)

	w.font("", 12)
	w.line("File: "+ds.FileName, 18)
	w.line("Uploaded: "+ds.UploadedAt.In(r.Location).Format("2006-01-02 15:04"), 30)

	w.font("B", 14)
	w.line("Summary", 22)
	w.font("", 12)
	for _, pair := range summaryPairs(ds.Summary) {
		w.line(pair, 18)
	}

	w.skip(12)
	w.font("B", 14)
	w.line("Equipment Type Distribution", 22)
	w.font("", 12)
	dist := distributionLines(ds.Summary.TypeDistribution)
	if len(dist) == 0 {
		w.line("No equipment types recorded.", 18)
	}
	for _, l := range dist {
		w.line(l, 18)
	}

	if len(ds.Data) > 0 {
		w.skip(12)
		w.font("B", 14)
		w.line("Sample Records", 22)
		w.font("", 10)
		for _, row := range sampleRows(ds) {
			w.line(row, 14)
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("rendering pdf: %w", pdf.Error())
	}
	return pdf, nil
}

// writer tracks the vertical cursor and breaks pages before a line would
// cross the bottom margin.
type writer struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	y      float64
	bottom float64
	style  string
	size   float64
}

func (w *writer) font(style string, size float64) {
	w.style, w.size = style, size
	w.pdf.SetFont(fontFamily, style, size)
}

func (w *writer) skip(dy float64) {
	w.y += dy
}

func (w *writer) line(text string, advance float64) {
	if w.y > w.bottom {
		w.pdf.AddPage()
		w.pdf.SetFont(fontFamily, w.style, w.size)
		w.y = margin
	}
	w.pdf.Text(margin, w.y, w.tr(text))
	w.y += advance
}

// toCP1252 encodes text for the core fonts, which only cover Windows-1252.
// Runes outside it become '?' so lost characters stay visible in the report.
func toCP1252(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		c, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}

func summaryPairs(s models.Summary) []string {
	return []string{
		fmt.Sprintf("Total Equipment: %d", s.TotalEquipment),
		fmt.Sprintf("Avg Flowrate: %.2f", s.AvgFlowrate),
		fmt.Sprintf("Avg Pressure: %.2f", s.AvgPressure),
		fmt.Sprintf("Avg Temperature: %.2f", s.AvgTemperature),
	}
}

// distributionLines lists types by count, most common first, ties by label.
func distributionLines(dist map[string]int) []string {
	labels := make([]string, 0, len(dist))
	for label := range dist {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if dist[labels[i]] != dist[labels[j]] {
			return dist[labels[i]] > dist[labels[j]]
		}
		return labels[i] < labels[j]
	})

	lines := make([]string, len(labels))
	for i, label := range labels {
		lines[i] = label + ": " + strconv.Itoa(dist[label])
	}
	return lines
}

func sampleRows(ds *models.Dataset) []string {
	rows := ds.Data
	if len(rows) > sampleRowLimit {
		rows = rows[:sampleRowLimit]
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		columns := ds.Columns
		if len(columns) == 0 {
			columns = sortedKeys(row)
		}
		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			parts = append(parts, col+": "+row[col].String())
		}
		out = append(out, truncate(strings.Join(parts, ", "), maxRowChars))
	}
	return out
}

func sortedKeys(row models.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
