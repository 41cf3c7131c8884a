package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"metascreen/domain/core"
	"metascreen/domain/screen"
	"metascreen/ports"
)

// DataReader handles reading Excel and CSV cohort files. Expected shape:
// column 1 is a subject identifier
// (discarded), one column carries the two-level class label, every other
// column is a numeric metabolite concentration named by the header row.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

var _ ports.DatasetReader = (*DataReader)(nil)

// ReadDataset reads the source file into screening inputs
func (r *DataReader) ReadDataset(ctx context.Context, labelColumn string) (*screen.FeatureMatrix, screen.LabelVector, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, nil, err
	}

	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}

	return r.processRows(rows, labelColumn)
}

// readCSVRows reads all raw CSV records
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// readExcelRows reads Sheet1 from an xlsx workbook
func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into a feature matrix and labels.
// Column 0 is treated as the subject identifier and dropped. Cells that do
// not parse as numbers become NaN so the screener can exclude them.
func (r *DataReader) processRows(rows [][]string, labelColumn string) (*screen.FeatureMatrix, screen.LabelVector, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}
	if len(headers) < 3 {
		return nil, nil, fmt.Errorf("expected subject, label and at least one feature column, got %d columns", len(headers))
	}

	labelIdx := -1
	for i, h := range headers {
		if strings.EqualFold(h, labelColumn) {
			labelIdx = i
			break
		}
	}
	if labelIdx == -1 {
		return nil, nil, fmt.Errorf("label column %q not found in header %v", labelColumn, headers)
	}
	if labelIdx == 0 {
		return nil, nil, fmt.Errorf("label column %q collides with the subject identifier column", labelColumn)
	}

	var features []core.FeatureKey
	var featureIdx []int
	for i := 1; i < len(headers); i++ {
		if i == labelIdx {
			continue
		}
		key, err := core.ParseFeatureKey(headers[i])
		if err != nil {
			return nil, nil, fmt.Errorf("column %d: %w", i, err)
		}
		features = append(features, key)
		featureIdx = append(featureIdx, i)
	}

	data := make([][]float64, 0, len(rows)-1)
	labels := make(screen.LabelVector, 0, len(rows)-1)
	for rowNum := 1; rowNum < len(rows); rowNum++ {
		row := rows[rowNum]

		labels = append(labels, cellAt(row, labelIdx))

		values := make([]float64, len(featureIdx))
		for j, col := range featureIdx {
			values[j] = parseCell(cellAt(row, col))
		}
		data = append(data, values)
	}

	matrix, err := screen.NewFeatureMatrix(features, data)
	if err != nil {
		return nil, nil, err
	}
	return matrix, labels, nil
}

// cellAt returns a trimmed cell, tolerating short rows (xlsx readers drop
// trailing empty cells)
func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCell coerces a raw cell to float64, NaN for blanks and non-numerics
func parseCell(cell string) float64 {
	if cell == "" || strings.EqualFold(cell, "na") || strings.EqualFold(cell, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
