package history

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"github.com/ethpandaops/columnbench/pkg/report"
	"github.com/google/uuid"
)

// Run is one recorded benchmark run.
type Run struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	RunID         string `gorm:"not null;uniqueIndex" json:"run_id"`
	Timestamp     int64  `gorm:"index" json:"timestamp"`
	DatasetSize   int    `json:"dataset_size"`
	TotalQueries  int    `json:"total_queries"`
	FailedQueries int    `json:"failed_queries"`

	// Summary over the successful queries.
	AverageSpeedup float64 `json:"average_speedup"`
	MaxSpeedup     float64 `json:"max_speedup"`
	MinSpeedup     float64 `json:"min_speedup"`
	BestQuery      string  `json:"best_query"`
	WorstQuery     string  `json:"worst_query"`

	// Per-query results serialized as JSON.
	ResultsJSON string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// QueryResult is a stored per-query result, including the failure message.
type QueryResult struct {
	benchmark.Result
	Error string `json:"error,omitempty"`
}

// NewRun builds a run record with a fresh run ID.
func NewRun(results []benchmark.Result, datasetSize int, now time.Time) (*Run, error) {
	stored := make([]QueryResult, 0, len(results))
	ok := make([]benchmark.Result, 0, len(results))

	for _, r := range results {
		qr := QueryResult{Result: r}

		if r.Err != nil {
			qr.Error = r.Err.Error()
		} else {
			ok = append(ok, r)
		}

		stored = append(stored, qr)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encoding results: %w", err)
	}

	run := &Run{
		RunID:         uuid.NewString(),
		Timestamp:     now.Unix(),
		DatasetSize:   datasetSize,
		TotalQueries:  len(results),
		FailedQueries: len(results) - len(ok),
		ResultsJSON:   string(data),
	}

	if s, err := report.Summarize(ok, now); err == nil {
		run.AverageSpeedup = s.AverageSpeedup
		run.MaxSpeedup = s.MaxSpeedup
		run.MinSpeedup = s.MinSpeedup
		run.BestQuery = s.BestQuery
		run.WorstQuery = s.WorstQuery
	}

	return run, nil
}

// Results decodes the stored per-query results.
func (r *Run) Results() ([]QueryResult, error) {
	if r.ResultsJSON == "" {
		return nil, nil
	}

	var results []QueryResult
	if err := json.Unmarshal([]byte(r.ResultsJSON), &results); err != nil {
		return nil, fmt.Errorf("decoding results of run %s: %w", r.RunID, err)
	}

	return results, nil
}
