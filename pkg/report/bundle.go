package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
	"github.com/sirupsen/logrus"
)

// Metadata describes the benchmark run a bundle was produced from.
type Metadata struct {
	DatasetSize int         `json:"dataset_size"`
	QueryTypes  []string    `json:"query_types"`
	TestDate    string      `json:"test_date"`
	System      *SystemInfo `json:"system,omitempty"`
}

// Bundle is the JSON report document.
type Bundle struct {
	Summary         Summary            `json:"summary"`
	DetailedResults []benchmark.Result `json:"detailed_results"`
	Metadata        Metadata           `json:"benchmark_metadata"`
}

// Files holds the paths of a written report bundle.
type Files struct {
	// Name is the bundle name embedded in every file name: the summary
	// timestamp, suffixed with _N when an earlier bundle already took it.
	Name string

	JSON     string
	CSV      string
	Chart    string
	Markdown string
}

// Paths returns every written file.
func (f *Files) Paths() []string {
	return []string{f.JSON, f.CSV, f.Chart, f.Markdown}
}

// FileNames returns the bundle file names for a bundle name.
func FileNames(dir, ts string) Files {
	return Files{
		Name:     ts,
		JSON:     filepath.Join(dir, "benchmark_report_"+ts+".json"),
		CSV:      filepath.Join(dir, "detailed_results_"+ts+".csv"),
		Chart:    filepath.Join(dir, "benchmark_results_"+ts+".png"),
		Markdown: filepath.Join(dir, "benchmark_summary_"+ts+".md"),
	}
}

// freeFileNames returns the file names for ts, or for the first free ts_N
// when a bundle from the same second is already in dir.
func freeFileNames(dir, ts string) (Files, error) {
	for n := 0; ; n++ {
		name := ts
		if n > 0 {
			name = fmt.Sprintf("%s_%d", ts, n)
		}

		files := FileNames(dir, name)

		taken, err := anyExists(files.Paths())
		if err != nil {
			return Files{}, err
		}

		if !taken {
			return files, nil
		}
	}
}

func anyExists(paths []string) (bool, error) {
	for _, p := range paths {
		_, err := os.Stat(p)
		if err == nil {
			return true, nil
		}

		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("checking %s: %w", p, err)
		}
	}

	return false, nil
}

// Options configures a Reporter.
type Options struct {
	OutputDir     string
	DatasetSize   int
	CollectSystem bool
}

// Reporter writes report bundles.
type Reporter struct {
	log    logrus.FieldLogger
	opts   Options
	now    func() time.Time
	system func(ctx context.Context) (*SystemInfo, error)
}

// NewReporter creates a reporter.
func NewReporter(log logrus.FieldLogger, opts Options) *Reporter {
	return &Reporter{
		log:    log.WithField("component", "report"),
		opts:   opts,
		now:    time.Now,
		system: CollectSystemInfo,
	}
}

// Build summarizes results into a bundle without writing anything.
func (r *Reporter) Build(ctx context.Context, results []benchmark.Result) (*Bundle, error) {
	summary, err := Summarize(results, r.now())
	if err != nil {
		return nil, err
	}

	queries := make([]string, len(results))
	for i, res := range results {
		queries[i] = res.Query
	}

	b := &Bundle{
		Summary:         summary,
		DetailedResults: results,
		Metadata: Metadata{
			DatasetSize: r.opts.DatasetSize,
			QueryTypes:  queries,
			TestDate:    summary.Timestamp,
		},
	}

	if r.opts.CollectSystem {
		sys, err := r.system(ctx)
		if err != nil {
			r.log.WithError(err).Warn("Failed to collect system info")
		} else {
			b.Metadata.System = sys
		}
	}

	return b, nil
}

// Generate builds the bundle and writes the JSON report, the CSV copy of
// the detailed rows, the chart image and the Markdown summary, all named
// with the bundle timestamp. A rerun within the same second gets a _N
// suffix rather than overwriting the earlier bundle.
func (r *Reporter) Generate(ctx context.Context, results []benchmark.Result) (*Bundle, *Files, error) {
	b, err := r.Build(ctx, results)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating output dir: %w", err)
	}

	files, err := freeFileNames(r.opts.OutputDir, b.Summary.Timestamp)
	if err != nil {
		return nil, nil, err
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding report: %w", err)
	}

	if err := os.WriteFile(files.JSON, data, 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing report: %w", err)
	}

	if err := benchmark.WriteCSVFile(files.CSV, results); err != nil {
		return nil, nil, fmt.Errorf("writing detailed results: %w", err)
	}

	if err := WriteChartFile(files.Chart, results); err != nil {
		return nil, nil, fmt.Errorf("writing chart: %w", err)
	}

	if err := os.WriteFile(files.Markdown, []byte(GenerateMarkdown(b)), 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing markdown summary: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"bundle": files.Name,
		"report": files.JSON,
		"csv":    files.CSV,
		"chart":  files.Chart,
	}).Info("Reports saved")

	return b, &files, nil
}
