package tabular

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cohort.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp CSV: %v", err)
	}
	return path
}

func TestReadDatasetCSV(t *testing.T) {
	csvData := `Patient ID,Muscle loss,Creatinine,Citrate,Hippurate
PIF_178,cachexic,90.1,112.7,100.0
PIF_087,cachexic,75.8,,80.2
NETL_005,control,30.5,40.1,notanumber
NETCR_014,control,28.9,39.7,55.5
`
	reader := NewDataReader(writeTempCSV(t, csvData))
	matrix, labels, err := reader.ReadDataset(context.Background(), "Muscle loss")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if matrix.Cols() != 3 {
		t.Fatalf("Expected 3 features, got %d", matrix.Cols())
	}
	expected := []string{"Creatinine", "Citrate", "Hippurate"}
	for i, name := range expected {
		if matrix.Features[i].String() != name {
			t.Errorf("Feature %d = %s, expected %s", i, matrix.Features[i], name)
		}
	}

	if matrix.Rows() != 4 || len(labels) != 4 {
		t.Fatalf("Expected 4 samples, got %d rows / %d labels", matrix.Rows(), len(labels))
	}
	if labels[0] != "cachexic" || labels[2] != "control" {
		t.Errorf("Labels misaligned: %v", labels)
	}

	// Blank and non-numeric cells must coerce to NaN, not zero
	if !math.IsNaN(matrix.Data[1][1]) {
		t.Errorf("Blank cell should be NaN, got %f", matrix.Data[1][1])
	}
	if !math.IsNaN(matrix.Data[2][2]) {
		t.Errorf("Non-numeric cell should be NaN, got %f", matrix.Data[2][2])
	}
	if matrix.Data[0][0] != 90.1 {
		t.Errorf("Expected 90.1, got %f", matrix.Data[0][0])
	}
}

func TestReadDatasetErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		reader := NewDataReader(filepath.Join(t.TempDir(), "absent.csv"))
		if _, _, err := reader.ReadDataset(context.Background(), "Muscle loss"); err == nil {
			t.Error("Expected error for missing file")
		}
	})

	t.Run("missing label column", func(t *testing.T) {
		reader := NewDataReader(writeTempCSV(t, "id,Group,m1\nA,x,1\n"))
		if _, _, err := reader.ReadDataset(context.Background(), "Muscle loss"); err == nil {
			t.Error("Expected error for unknown label column")
		}
	})

	t.Run("header only", func(t *testing.T) {
		reader := NewDataReader(writeTempCSV(t, "id,Group,m1\n"))
		if _, _, err := reader.ReadDataset(context.Background(), "Group"); err == nil {
			t.Error("Expected error for file without data rows")
		}
	})

	t.Run("label in subject position", func(t *testing.T) {
		reader := NewDataReader(writeTempCSV(t, "Group,id,m1\nx,A,1\ny,B,2\n"))
		if _, _, err := reader.ReadDataset(context.Background(), "Group"); err == nil {
			t.Error("Expected error when label column is the subject column")
		}
	})
}

func TestReadDatasetShortRows(t *testing.T) {
	// Trailing cells dropped, as xlsx readers do
	csvData := "id,Group,m1,m2\nA,cachexic,1.5,2.5\nB,control,3.5,4.5\nC,control,5.5,6.5\n"
	reader := NewDataReader(writeTempCSV(t, csvData))
	matrix, labels, err := reader.ReadDataset(context.Background(), "Group")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if matrix.Rows() != 3 {
		t.Fatalf("Expected 3 rows, got %d", matrix.Rows())
	}
	if labels.Count("control") != 2 {
		t.Errorf("Expected 2 control labels, got %d", labels.Count("control"))
	}
}
