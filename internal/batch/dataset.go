// internal/batch/dataset.go

// Package batch runs benchmark datasets through the evaluation loop, one task
// at a time, and aggregates the outcomes into a summary artifact.
package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/dsoriano-dev/webknow/api/schemas"
)

// Dataset CSV column headers. The format follows the WebBench export: one row
// per task with a free-text description and a difficulty label.
const (
	columnID          = "ID"
	columnStartingURL = "Starting URL"
	columnCategory    = "Category"
	columnDifficulty  = "Difficulty"
	columnTask        = "Task"
)

// LoadDataset reads the benchmark CSV and returns the tasks matching the
// difficulty filter. An empty difficulty keeps every row.
func LoadDataset(path, difficulty string, logger *zap.Logger) ([]schemas.BatchTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{columnID, columnStartingURL, columnDifficulty, columnTask} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("dataset is missing required column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var tasks []schemas.BatchTask
	total := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row: %w", err)
		}
		total++

		if difficulty != "" && !strings.EqualFold(field(row, columnDifficulty), difficulty) {
			continue
		}
		tasks = append(tasks, schemas.BatchTask{
			ID:          field(row, columnID),
			StartingURL: field(row, columnStartingURL),
			Category:    field(row, columnCategory),
			Difficulty:  field(row, columnDifficulty),
			Description: field(row, columnTask),
		})
	}

	logger.Info("Dataset loaded",
		zap.String("path", path),
		zap.String("difficulty_filter", difficulty),
		zap.Int("matched_tasks", len(tasks)),
		zap.Int("total_tasks", total))
	return tasks, nil
}
