package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/history"
)

func setupTestStore(t *testing.T) history.Store {
	t.Helper()

	cfg := &config.HistoryConfig{
		Enabled: true,
		Driver:  "sqlite",
		SQLite:  config.SQLiteDatabaseConfig{Path: ":memory:"},
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := history.NewStore(log, cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func sampleResults() []benchmark.Result {
	return []benchmark.Result{
		{Query: "count_total", ClickHouseTime: 0.01, MySQLTime: 0.1, Speedup: 10, RowsReturned: 1},
		{Query: "top_urls", ClickHouseTime: 0.02, MySQLTime: 0.04, Speedup: 2, RowsReturned: 5},
		{Query: "hourly_traffic", Err: errors.New("mysql: syntax error")},
	}
}

func TestNewRun(t *testing.T) {
	now := time.Unix(1700000000, 0)

	run, err := history.NewRun(sampleResults(), 100, now)
	require.NoError(t, err)

	assert.Len(t, run.RunID, 36)
	assert.Equal(t, int64(1700000000), run.Timestamp)
	assert.Equal(t, 100, run.DatasetSize)
	assert.Equal(t, 3, run.TotalQueries)
	assert.Equal(t, 1, run.FailedQueries)
	assert.InDelta(t, 6.0, run.AverageSpeedup, 1e-12)
	assert.Equal(t, "count_total", run.BestQuery)
	assert.Equal(t, "top_urls", run.WorstQuery)

	results, err := run.Results()
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "count_total", results[0].Query)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "mysql: syntax error", results[2].Error)

	other, err := history.NewRun(sampleResults(), 100, now)
	require.NoError(t, err)
	assert.NotEqual(t, run.RunID, other.RunID)
}

func TestStore_SaveAndList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run, err := history.NewRun(sampleResults(), 100*(i+1), time.Unix(int64(1700000000+i), 0))
		require.NoError(t, err)
		require.NoError(t, s.SaveRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 300, runs[0].DatasetSize, "newest first")
	assert.Equal(t, 100, runs[2].DatasetSize)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_SaveRunIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run, err := history.NewRun(sampleResults(), 100, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, run))

	duplicate := *run
	duplicate.ID = 0
	require.NoError(t, s.SaveRun(ctx, &duplicate))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1, "save must not duplicate the row")
}

func TestStore_GetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run, err := history.NewRun(sampleResults(), 100, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, run.ResultsJSON, got.ResultsJSON)

	_, err = s.GetRun(ctx, "does-not-exist")
	require.ErrorIs(t, err, history.ErrRunNotFound)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	s := history.NewStore(logrus.New(), &config.HistoryConfig{Driver: "oracle"})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
	require.NoError(t, s.Stop())
}
