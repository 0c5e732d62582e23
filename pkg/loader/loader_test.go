package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethpandaops/columnbench/pkg/database"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name      string
	pingErr   error
	createErr error
	loadErr   error
	rows      int64
	calls     []Step
	loadedArg string
}

var _ database.Engine = (*fakeEngine)(nil)

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Ping(context.Context) error {
	f.calls = append(f.calls, StepPing)

	return f.pingErr
}

func (f *fakeEngine) CreateTable(context.Context) error {
	f.calls = append(f.calls, StepCreateTable)

	return f.createErr
}

func (f *fakeEngine) BulkLoad(_ context.Context, path string) (int64, error) {
	f.calls = append(f.calls, StepLoad)
	f.loadedArg = path

	if f.loadErr != nil {
		return 0, f.loadErr
	}

	return f.rows, nil
}

func (f *fakeEngine) Query(context.Context, string) (int, error) { return 0, nil }

func (f *fakeEngine) Count(context.Context) (int64, error) {
	f.calls = append(f.calls, StepVerify)

	return f.rows, nil
}

func (f *fakeEngine) Close() error { return nil }

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func dataFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "web_logs.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,user_id,ip_address,url,status_code,response_time_ms\n"), 0o644))

	return path
}

func TestCoordinator_Run(t *testing.T) {
	path := dataFile(t)
	ch := &fakeEngine{name: "clickhouse", rows: 100}
	my := &fakeEngine{name: "mysql", rows: 100}

	c := NewCoordinator(testLogger(), []database.Engine{ch, my}, Options{DataPath: path, ContinueOnError: true})

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 8)

	all := []Step{StepPing, StepCreateTable, StepLoad, StepVerify}
	assert.Equal(t, all, ch.calls)
	assert.Equal(t, all, my.calls)
	assert.Equal(t, path, my.loadedArg)

	assert.Equal(t, "clickhouse", results[0].Engine)
	assert.Equal(t, StepPing, results[0].Step)
	assert.Equal(t, "mysql", results[1].Engine)
	assert.Equal(t, StepLoad, results[4].Step)
	assert.Equal(t, int64(100), results[4].Rows)
}

func TestCoordinator_ContinueOnError(t *testing.T) {
	path := dataFile(t)
	pingErr := errors.New("connection refused")
	ch := &fakeEngine{name: "clickhouse", pingErr: pingErr, rows: 10}
	my := &fakeEngine{name: "mysql", rows: 10}

	tests := []struct {
		name            string
		continueOnError bool
		wantCH          []Step
		wantMy          []Step
	}{
		{
			name:            "continue attempts every later step",
			continueOnError: true,
			wantCH:          []Step{StepPing, StepCreateTable, StepLoad, StepVerify},
			wantMy:          []Step{StepPing, StepCreateTable, StepLoad, StepVerify},
		},
		{
			name:            "abort stops at first failure",
			continueOnError: false,
			wantCH:          []Step{StepPing},
			wantMy:          nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch.calls, my.calls = nil, nil

			c := NewCoordinator(testLogger(), []database.Engine{ch, my}, Options{
				DataPath:        path,
				ContinueOnError: tt.continueOnError,
			})

			results, err := c.Run(context.Background())
			require.ErrorIs(t, err, pingErr)
			assert.Contains(t, err.Error(), "clickhouse ping")
			assert.Equal(t, tt.wantCH, ch.calls)
			assert.Equal(t, tt.wantMy, my.calls)
			assert.ErrorIs(t, results[0].Err, pingErr)
		})
	}
}

func TestCoordinator_DataFileMissing(t *testing.T) {
	ch := &fakeEngine{name: "clickhouse"}
	my := &fakeEngine{name: "mysql"}

	c := NewCoordinator(testLogger(), []database.Engine{ch, my}, Options{
		DataPath:        filepath.Join(t.TempDir(), "missing.csv"),
		ContinueOnError: true,
	})

	results, err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrDataFileMissing)

	// Tables are still created before the file check.
	assert.Len(t, results, 4)
	assert.Equal(t, []Step{StepPing, StepCreateTable}, ch.calls)
	assert.Equal(t, []Step{StepPing, StepCreateTable}, my.calls)
}

func TestCoordinator_LoadFailureKeepsGoing(t *testing.T) {
	path := dataFile(t)
	loadErr := errors.New("local infile disabled")
	ch := &fakeEngine{name: "clickhouse", rows: 5}
	my := &fakeEngine{name: "mysql", loadErr: loadErr}

	c := NewCoordinator(testLogger(), []database.Engine{ch, my}, Options{DataPath: path, ContinueOnError: true})

	results, err := c.Run(context.Background())
	require.ErrorIs(t, err, loadErr)
	require.Len(t, results, 8)

	var failed []StepResult

	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}

	require.Len(t, failed, 1)
	assert.Equal(t, "mysql", failed[0].Engine)
	assert.Equal(t, StepLoad, failed[0].Step)
}

func TestCoordinator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := &fakeEngine{name: "clickhouse"}

	c := NewCoordinator(testLogger(), []database.Engine{ch}, Options{DataPath: dataFile(t), ContinueOnError: true})

	results, err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, ch.calls)
}
