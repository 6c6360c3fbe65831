package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dim272/bwn-parser/internal/domain"
)

// ErrNothingToExport marks the "ran fine, found nothing" terminal state.
var ErrNothingToExport = errors.New("result is empty, nothing to export")

// ResultRepository accumulates matched rows from the worker pools and writes
// them out once at the end of the run.
type ResultRepository interface {
	Add(row domain.ResultRow)
	Len() int
	Rows() []domain.ResultRow
	Export() (string, error)
}

type csvResultRepository struct {
	mu        sync.Mutex
	rows      []domain.ResultRow
	outputDir string
}

func NewResultRepository(outputDir string) ResultRepository {
	return &csvResultRepository{
		outputDir: outputDir,
	}
}

func (r *csvResultRepository) Add(row domain.ResultRow) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rows = append(r.rows, row)
}

func (r *csvResultRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rows)
}

// Rows returns a sorted copy of the accumulated rows. Workers append in
// completion order; sorting by product id, size and price makes repeated runs
// over identical data produce identical output.
func (r *csvResultRepository) Rows() []domain.ResultRow {
	r.mu.Lock()
	rows := make([]domain.ResultRow, len(r.rows))
	copy(rows, r.rows)
	r.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ProductID != rows[j].ProductID {
			return rows[i].ProductID < rows[j].ProductID
		}
		if rows[i].ProductSize != rows[j].ProductSize {
			return rows[i].ProductSize < rows[j].ProductSize
		}
		return rows[i].RetailPrice < rows[j].RetailPrice
	})

	return rows
}

// Export writes the accumulated rows to a timestamped CSV file and returns
// its path. Fails with ErrNothingToExport when no row matched.
func (r *csvResultRepository) Export() (string, error) {
	rows := r.Rows()
	if len(rows) == 0 {
		return "", ErrNothingToExport
	}

	fileName := filepath.Join(r.outputDir, time.Now().Format("2006-01-02_15-04-05")+".csv")

	file, err := os.Create(fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create result file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(domain.ResultColumns); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		if err := writer.Write(row.Record()); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush result file: %w", err)
	}

	return fileName, nil
}
