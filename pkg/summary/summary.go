// Package summary aggregates completed experiment directories into a
// comparison table. It is strictly read-only and resilient: missing or
// malformed metadata and metrics degrade to defaulted fields instead of
// aborting the scan.
package summary

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Filenames read from each experiment directory.
const (
	metadataFile = "metadata.json"
	metricsFile  = "metrics.csv"
)

// Row is one experiment's summary. Nil metric pointers mark absent values,
// which is distinct from zero.
type Row struct {
	ID          string
	Family      string
	Variant     string
	Timestamp   string
	Description string

	ReconSSIM    *float64
	ReconPSNR    *float64
	DenoisedSSIM *float64
	DenoisedPSNR *float64
}

// Scan reads every non-hidden subdirectory of baseDir and returns one row
// per experiment, sorted by directory name. Unreadable directories yield
// defaulted rows; only a missing baseDir is an error.
func Scan(baseDir string) ([]Row, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("summary: read %s: %w", baseDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var rows []Row
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		rows = append(rows, summarize(filepath.Join(baseDir, entry.Name()), entry.Name()))
	}
	return rows, nil
}

type metadata struct {
	ID           string `json:"id"`
	Family       string `json:"family"`
	Variant      string `json:"variant"`
	TimestampUTC string `json:"timestamp_utc"`
	Description  string `json:"description"`
}

func summarize(expDir, dirName string) Row {
	meta := loadMetadata(expDir)
	if meta.ID == "" {
		meta.ID = dirName
	}

	m := loadMetrics(expDir)
	recon := m["recon"]
	denoised := m["denoised"]

	return Row{
		ID:           meta.ID,
		Family:       meta.Family,
		Variant:      meta.Variant,
		Timestamp:    meta.TimestampUTC,
		Description:  strings.TrimSpace(meta.Description),
		ReconSSIM:    recon.ssim,
		ReconPSNR:    recon.psnr,
		DenoisedSSIM: denoised.ssim,
		DenoisedPSNR: denoised.psnr,
	}
}

// loadMetadata returns a zero record when metadata.json is missing or
// malformed.
func loadMetadata(expDir string) metadata {
	var meta metadata
	data, err := os.ReadFile(filepath.Join(expDir, metadataFile))
	if err != nil {
		return metadata{}
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return metadata{}
	}
	return meta
}

type metricPair struct {
	ssim *float64
	psnr *float64
}

// loadMetrics parses metrics.csv. A missing or malformed file yields an
// empty map; malformed numeric cells are coerced to absent rather than
// raising.
func loadMetrics(expDir string) map[string]metricPair {
	results := make(map[string]metricPair)

	f, err := os.Open(filepath.Join(expDir, metricsFile))
	if err != nil {
		return results
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return results
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	nameIdx, ok := col["name"]
	if !ok {
		return results
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return make(map[string]metricPair)
		}
		if nameIdx >= len(record) {
			continue
		}
		name := record[nameIdx]
		if name == "" {
			name = "unknown"
		}
		results[name] = metricPair{
			ssim: parseCell(record, col, "ssim"),
			psnr: parseCell(record, col, "psnr"),
		}
	}
	return results
}

func parseCell(record []string, col map[string]int, key string) *float64 {
	idx, ok := col[key]
	if !ok || idx >= len(record) || record[idx] == "" {
		return nil
	}
	v, err := strconv.ParseFloat(record[idx], 64)
	if err != nil {
		return nil
	}
	return &v
}

var tableHeaders = []string{
	"family",
	"variant",
	"id",
	"timestamp",
	"recon_ssim",
	"recon_psnr",
	"denoised_ssim",
	"denoised_psnr",
}

// Render writes a column-aligned comparison table. Absent metrics render as
// a dash.
func Render(w io.Writer, rows []Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No experiments found.")
		return
	}

	cells := make([][]string, len(rows))
	for i, r := range rows {
		cells[i] = []string{
			r.Family,
			r.Variant,
			r.ID,
			r.Timestamp,
			formatMetric(r.ReconSSIM),
			formatMetric(r.ReconPSNR),
			formatMetric(r.DenoisedSSIM),
			formatMetric(r.DenoisedPSNR),
		}
	}

	widths := make([]int, len(tableHeaders))
	for i, h := range tableHeaders {
		widths[i] = len(h)
	}
	for _, row := range cells {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeLine := func(cols []string) {
		parts := make([]string, len(cols))
		for i, cell := range cols {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	writeLine(tableHeaders)
	seps := make([]string, len(tableHeaders))
	for i := range seps {
		seps[i] = strings.Repeat("-", widths[i])
	}
	writeLine(seps)
	for _, row := range cells {
		writeLine(row)
	}
}

func formatMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
