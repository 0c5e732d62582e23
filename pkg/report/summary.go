package report

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
)

// TimestampLayout formats the timestamp embedded in report file names.
const TimestampLayout = "20060102_150405"

var (
	// ErrResultsNotFound is returned when the benchmark results file is missing.
	ErrResultsNotFound = errors.New("benchmark results not found")

	// ErrNoResults is returned when there are no results to summarize.
	ErrNoResults = errors.New("no benchmark results")
)

var (
	aggregationPattern = regexp.MustCompile(`(?i)count|avg|sum`)
	groupingPattern    = regexp.MustCompile(`(?i)group|top`)
)

// Summary aggregates the speedups of a result set.
type Summary struct {
	Timestamp      string  `json:"timestamp"`
	AverageSpeedup float64 `json:"average_speedup"`
	MaxSpeedup     float64 `json:"max_speedup"`
	MinSpeedup     float64 `json:"min_speedup"`
	BestQuery      string  `json:"best_query"`
	WorstQuery     string  `json:"worst_query"`
	TotalQueries   int     `json:"total_queries"`
}

// Load reads the benchmark results file.
func Load(path string) ([]benchmark.Result, error) {
	results, err := benchmark.ReadCSVFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrResultsNotFound, path)
		}

		return nil, fmt.Errorf("reading results: %w", err)
	}

	return results, nil
}

// Summarize computes mean, max and min speedup and the queries holding the
// max and min. The first occurrence wins ties.
func Summarize(results []benchmark.Result, now time.Time) (Summary, error) {
	if len(results) == 0 {
		return Summary{}, ErrNoResults
	}

	var (
		sum         float64
		best, worst int
	)

	for i, r := range results {
		sum += r.Speedup

		if r.Speedup > results[best].Speedup {
			best = i
		}

		if r.Speedup < results[worst].Speedup {
			worst = i
		}
	}

	return Summary{
		Timestamp:      now.Format(TimestampLayout),
		AverageSpeedup: sum / float64(len(results)),
		MaxSpeedup:     results[best].Speedup,
		MinSpeedup:     results[worst].Speedup,
		BestQuery:      results[best].Query,
		WorstQuery:     results[worst].Query,
		TotalQueries:   len(results),
	}, nil
}

// Tier is a qualitative speedup bucket.
type Tier int

const (
	TierMinimal Tier = iota
	TierModerate
	TierVeryGood
	TierExcellent
)

// Classify buckets a speedup: above 10, above 5, above 2, or anything else.
func Classify(speedup float64) Tier {
	switch {
	case speedup > 10:
		return TierExcellent
	case speedup > 5:
		return TierVeryGood
	case speedup > 2:
		return TierModerate
	default:
		return TierMinimal
	}
}

func (t Tier) String() string {
	switch t {
	case TierExcellent:
		return "excellent"
	case TierVeryGood:
		return "very good"
	case TierModerate:
		return "moderate"
	default:
		return "minimal"
	}
}

// Insight returns the narrative line for the tier.
func (t Tier) Insight() string {
	switch t {
	case TierExcellent:
		return "Excellent for analytical workloads"
	case TierVeryGood:
		return "Very good performance gain"
	case TierModerate:
		return "Moderate improvement"
	default:
		return "Minimal advantage for this query type"
	}
}

// GroupStats is the mean speedup of queries whose names match a pattern.
type GroupStats struct {
	Name           string  `json:"name"`
	Queries        int     `json:"queries"`
	AverageSpeedup float64 `json:"average_speedup"`
}

// Groups returns the aggregation and grouping statistics. Groups with no
// matching query are omitted.
func Groups(results []benchmark.Result) []GroupStats {
	var out []GroupStats

	for _, g := range []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"aggregation", aggregationPattern},
		{"grouping", groupingPattern},
	} {
		var (
			sum float64
			n   int
		)

		for _, r := range results {
			if g.pattern.MatchString(r.Query) {
				sum += r.Speedup
				n++
			}
		}

		if n > 0 {
			out = append(out, GroupStats{Name: g.name, Queries: n, AverageSpeedup: sum / float64(n)})
		}
	}

	return out
}
