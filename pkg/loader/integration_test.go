//go:build integration

package loader_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/database"
	"github.com/ethpandaops/columnbench/pkg/dataset"
	"github.com/ethpandaops/columnbench/pkg/loader"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against live engines configured through COLUMNBENCH_* variables,
// e.g. after `columnbench setup`:
//
//	go test -tags integration ./pkg/loader/...
func TestGenerateLoadQuery(t *testing.T) {
	const rows = 100

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pair, err := database.Open(log, cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = pair.Close() })

	// The table is created if missing and never dropped, so row counts are
	// compared against what was there before the load.
	before := make(map[string]int64, 2)

	for _, e := range pair.Engines() {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := e.Ping(pingCtx)
		pingCancel()

		if err != nil {
			t.Skipf("%s unreachable: %v", e.Name(), err)
		}

		require.NoError(t, e.CreateTable(ctx))

		n, err := e.Count(ctx)
		require.NoError(t, err)

		before[e.Name()] = n
	}

	seed := int64(42)
	path := filepath.Join(t.TempDir(), "web_logs.csv")
	require.NoError(t, dataset.NewGenerator(&seed).WriteFile(path, rows))

	steps, err := loader.NewCoordinator(log, pair.Engines(), loader.Options{
		DataPath: path,
	}).Run(ctx)
	require.NoError(t, err)

	verified := 0

	for _, s := range steps {
		if s.Step != loader.StepVerify {
			continue
		}

		verified++
		assert.Equal(t, before[s.Engine]+rows, s.Rows, s.Engine)
	}

	assert.Equal(t, 2, verified)

	results, err := benchmark.NewRunner(log, pair.Column, pair.Row, benchmark.DefaultCatalog(), benchmark.Options{
		QueryTimeout: time.Minute,
	}).Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, len(benchmark.DefaultCatalog()))

	assert.Equal(t, "count_total", results[0].Query)
	assert.Equal(t, 1, results[0].RowsReturned)
	assert.Equal(t, 1, results[0].MySQLRows)

	for _, r := range results {
		assert.Positive(t, r.Speedup, r.Query)
	}
}
