package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResults() []benchmark.Result {
	return []benchmark.Result{
		{Query: "count_total", ClickHouseTime: 0.01, MySQLTime: 0.15, Speedup: 15, RowsReturned: 1},
		{Query: "count_by_status", ClickHouseTime: 0.02, MySQLTime: 0.12, Speedup: 6, RowsReturned: 3},
		{Query: "avg_response_time", ClickHouseTime: 0.01, MySQLTime: 0.03, Speedup: 3, RowsReturned: 1},
		{Query: "top_urls", ClickHouseTime: 0.05, MySQLTime: 0.04, Speedup: 0.8, RowsReturned: 5},
		{Query: "hourly_traffic", ClickHouseTime: 0.02, MySQLTime: 0.1, Speedup: 5, RowsReturned: 24},
	}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name    string
		results []benchmark.Result
		want    Summary
		wantErr error
	}{
		{
			name:    "empty",
			results: nil,
			wantErr: ErrNoResults,
		},
		{
			name:    "catalog",
			results: sampleResults(),
			want: Summary{
				Timestamp:      "20240309_140507",
				AverageSpeedup: (15 + 6 + 3 + 0.8 + 5) / 5,
				MaxSpeedup:     15,
				MinSpeedup:     0.8,
				BestQuery:      "count_total",
				WorstQuery:     "top_urls",
				TotalQueries:   5,
			},
		},
		{
			name: "ties pick first occurrence",
			results: []benchmark.Result{
				{Query: "a", Speedup: 2},
				{Query: "b", Speedup: 4},
				{Query: "c", Speedup: 4},
				{Query: "d", Speedup: 2},
			},
			want: Summary{
				Timestamp:      "20240309_140507",
				AverageSpeedup: 3,
				MaxSpeedup:     4,
				MinSpeedup:     2,
				BestQuery:      "b",
				WorstQuery:     "a",
				TotalQueries:   4,
			},
		},
		{
			name:    "single result",
			results: []benchmark.Result{{Query: "only", Speedup: 1.5}},
			want: Summary{
				Timestamp:      "20240309_140507",
				AverageSpeedup: 1.5,
				MaxSpeedup:     1.5,
				MinSpeedup:     1.5,
				BestQuery:      "only",
				WorstQuery:     "only",
				TotalQueries:   1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Summarize(tt.results, now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.InDelta(t, tt.want.AverageSpeedup, got.AverageSpeedup, 1e-12)

			got.AverageSpeedup = tt.want.AverageSpeedup
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		speedup float64
		want    Tier
	}{
		{speedup: 25, want: TierExcellent},
		{speedup: 10.01, want: TierExcellent},
		{speedup: 10, want: TierVeryGood},
		{speedup: 5.5, want: TierVeryGood},
		{speedup: 5, want: TierModerate},
		{speedup: 2.1, want: TierModerate},
		{speedup: 2, want: TierMinimal},
		{speedup: 0.3, want: TierMinimal},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.speedup))
		})
	}

	assert.Equal(t, "Excellent for analytical workloads", TierExcellent.Insight())
	assert.Equal(t, "Minimal advantage for this query type", TierMinimal.Insight())
}

func TestGroups(t *testing.T) {
	groups := Groups(sampleResults())
	require.Len(t, groups, 2)

	// count_total, count_by_status, avg_response_time
	assert.Equal(t, "aggregation", groups[0].Name)
	assert.Equal(t, 3, groups[0].Queries)
	assert.InDelta(t, 8.0, groups[0].AverageSpeedup, 1e-12)

	// top_urls
	assert.Equal(t, "grouping", groups[1].Name)
	assert.Equal(t, 1, groups[1].Queries)
	assert.InDelta(t, 0.8, groups[1].AverageSpeedup, 1e-12)

	assert.Empty(t, Groups([]benchmark.Result{{Query: "hourly_traffic", Speedup: 3}}))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "benchmark_results.csv"))
	require.ErrorIs(t, err, ErrResultsNotFound)

	path := filepath.Join(dir, "benchmark_results.csv")
	require.NoError(t, benchmark.WriteCSVFile(path, sampleResults()))

	results, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sampleResults(), results)

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("nope\n"), 0o644))

	_, err = Load(bad)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrResultsNotFound))
}

func TestWriteText(t *testing.T) {
	results := sampleResults()

	summary, err := Summarize(results, time.Now())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, results, summary))

	out := buf.String()
	assert.Contains(t, out, "Average Speedup: 6.0x")
	assert.Contains(t, out, "BEST PERFORMING QUERY: count_total")
	assert.Contains(t, out, "SLOWEST PERFORMING QUERY: top_urls")
	assert.Contains(t, out, "Query: hourly_traffic")
	assert.Contains(t, out, "INSIGHT: Excellent for analytical workloads")
	assert.Contains(t, out, "INSIGHT: Minimal advantage for this query type")
	assert.Contains(t, out, "Aggregation queries (COUNT, AVG, SUM)")
	assert.Contains(t, out, "GROUP BY queries")
	assert.Contains(t, out, "KEY TAKEAWAYS:\n   - ClickHouse dominates analytical workloads with large datasets\n")
	assert.True(t, strings.HasSuffix(out, "   - Optimal use case: Real-time analytics on large datasets\n"))
	assert.Less(t, strings.Index(out, "TECHNICAL INSIGHTS"), strings.Index(out, "KEY TAKEAWAYS"))
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, sampleResults()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))

	require.ErrorIs(t, WriteChart(&buf, nil), ErrNoResults)
}

func TestGenerateMarkdown(t *testing.T) {
	r := NewReporter(testLogger(), Options{DatasetSize: 100})
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	b, err := r.Build(context.Background(), sampleResults())
	require.NoError(t, err)

	b.Metadata.System = &SystemInfo{Hostname: "bench-1", CPUCores: 8}

	md := GenerateMarkdown(b)
	assert.Contains(t, md, "# Benchmark Report: 20240102_030405")
	assert.Contains(t, md, "| count_total | 0.010 | 0.150 | 15.0x | 1 | excellent |")
	assert.Contains(t, md, "| aggregation | 3 | 8.0x |")
	assert.Contains(t, md, "| Hostname | bench-1 |")
}

func TestReporter_GenerateTwice(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "benchmark_results.csv")
	require.NoError(t, benchmark.WriteCSVFile(input, sampleResults()))

	times := []time.Time{
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		time.Date(2024, 1, 2, 3, 4, 9, 0, time.UTC),
	}

	var (
		bundles []Bundle
		csvs    [][]byte
		files   []*Files
	)

	for _, now := range times {
		results, err := Load(input)
		require.NoError(t, err)

		r := NewReporter(testLogger(), Options{OutputDir: dir, DatasetSize: 100, CollectSystem: true})
		r.now = func() time.Time { return now }
		r.system = func(context.Context) (*SystemInfo, error) {
			return &SystemInfo{Hostname: "bench-1"}, nil
		}

		_, f, err := r.Generate(context.Background(), results)
		require.NoError(t, err)

		for _, p := range f.Paths() {
			assert.FileExists(t, p)
		}

		data, err := os.ReadFile(f.JSON)
		require.NoError(t, err)

		var b Bundle
		require.NoError(t, json.Unmarshal(data, &b))

		csv, err := os.ReadFile(f.CSV)
		require.NoError(t, err)

		bundles = append(bundles, b)
		csvs = append(csvs, csv)
		files = append(files, f)
	}

	assert.Equal(t, filepath.Join(dir, "benchmark_report_20240102_030405.json"), files[0].JSON)
	assert.Equal(t, filepath.Join(dir, "benchmark_report_20240102_030409.json"), files[1].JSON)
	assert.Equal(t, filepath.Join(dir, "detailed_results_20240102_030405.csv"), files[0].CSV)
	assert.Equal(t, filepath.Join(dir, "benchmark_results_20240102_030405.png"), files[0].Chart)

	assert.NotEqual(t, bundles[0].Summary.Timestamp, bundles[1].Summary.Timestamp)

	diff := cmp.Diff(bundles[0], bundles[1],
		cmpopts.IgnoreFields(Summary{}, "Timestamp"),
		cmpopts.IgnoreFields(Metadata{}, "TestDate"),
	)
	assert.Empty(t, diff)
	assert.Equal(t, csvs[0], csvs[1])

	assert.Equal(t, 100, bundles[0].Metadata.DatasetSize)
	assert.Equal(t, []string{"count_total", "count_by_status", "avg_response_time", "top_urls", "hourly_traffic"}, bundles[0].Metadata.QueryTypes)
	assert.Equal(t, "bench-1", bundles[0].Metadata.System.Hostname)
}

func TestReporter_SameSecondRerun(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	r := NewReporter(testLogger(), Options{OutputDir: dir})
	r.now = func() time.Time { return now }

	var names []string

	for i := 0; i < 3; i++ {
		b, f, err := r.Generate(context.Background(), sampleResults())
		require.NoError(t, err)
		assert.Equal(t, "20240102_030405", b.Summary.Timestamp)

		for _, p := range f.Paths() {
			assert.FileExists(t, p)
		}

		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"20240102_030405", "20240102_030405_1", "20240102_030405_2"}, names)
	assert.FileExists(t, filepath.Join(dir, "benchmark_summary_20240102_030405_1.md"))

	reports, err := filepath.Glob(filepath.Join(dir, "benchmark_report_*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}

func TestReporter_SystemFailureIsNotFatal(t *testing.T) {
	r := NewReporter(testLogger(), Options{CollectSystem: true})
	r.system = func(context.Context) (*SystemInfo, error) {
		return nil, errors.New("no /proc")
	}

	b, err := r.Build(context.Background(), sampleResults())
	require.NoError(t, err)
	assert.Nil(t, b.Metadata.System)
}
