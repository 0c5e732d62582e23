package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethpandaops/columnbench/pkg/benchmark"
)

var groupNotes = map[string]struct{ title, why string }{
	"aggregation": {
		title: "Aggregation queries (COUNT, AVG, SUM)",
		why:   "Columnar storage scans and aggregates only the referenced columns",
	},
	"grouping": {
		title: "GROUP BY queries",
		why:   "Vectorized execution handles grouping operations efficiently",
	},
}

var keyTakeaways = []string{
	"ClickHouse dominates analytical workloads with large datasets",
	"Best for: aggregations, filtering, time-series analysis",
	"Consider: MySQL may still be better for transactional workloads",
	"Optimal use case: Real-time analytics on large datasets",
}

// WriteText renders the summary, per-query breakdown, technical insights
// and the closing takeaways.
func WriteText(w io.Writer, results []benchmark.Result, s Summary) error {
	var sb strings.Builder

	rule := strings.Repeat("=", 60)

	sb.WriteString(rule + "\n")
	sb.WriteString("CLICKHOUSE vs MYSQL PERFORMANCE BENCHMARK REPORT\n")
	sb.WriteString(rule + "\n\n")

	sb.WriteString("PERFORMANCE SUMMARY:\n")
	fmt.Fprintf(&sb, "   Average Speedup: %.1fx\n", s.AverageSpeedup)
	fmt.Fprintf(&sb, "   Maximum Speedup: %.1fx\n", s.MaxSpeedup)
	fmt.Fprintf(&sb, "   Minimum Speedup: %.1fx\n", s.MinSpeedup)

	if best, ok := find(results, s.BestQuery); ok {
		fmt.Fprintf(&sb, "\nBEST PERFORMING QUERY: %s\n", best.Query)
		writeTimes(&sb, best)
	}

	if worst, ok := find(results, s.WorstQuery); ok {
		fmt.Fprintf(&sb, "\nSLOWEST PERFORMING QUERY: %s\n", worst.Query)
		writeTimes(&sb, worst)
	}

	rule = strings.Repeat("=", 50)

	sb.WriteString("\n" + rule + "\nDETAILED QUERY BREAKDOWN\n" + rule + "\n")

	for _, r := range results {
		fmt.Fprintf(&sb, "\nQuery: %s\n", r.Query)
		fmt.Fprintf(&sb, "   ClickHouse: %.3f seconds\n", r.ClickHouseTime)
		fmt.Fprintf(&sb, "   MySQL: %.3f seconds\n", r.MySQLTime)
		fmt.Fprintf(&sb, "   Speedup: %.1fx faster\n", r.Speedup)
		fmt.Fprintf(&sb, "   INSIGHT: %s\n", Classify(r.Speedup).Insight())
	}

	sb.WriteString("\n" + rule + "\nTECHNICAL INSIGHTS\n" + rule + "\n")

	for _, g := range Groups(results) {
		note := groupNotes[g.Name]
		fmt.Fprintf(&sb, "\n%s:\n", note.title)
		fmt.Fprintf(&sb, "   Average speedup: %.1fx\n", g.AverageSpeedup)
		fmt.Fprintf(&sb, "   Why: %s\n", note.why)
	}

	sb.WriteString("\nKEY TAKEAWAYS:\n")

	for _, line := range keyTakeaways {
		fmt.Fprintf(&sb, "   - %s\n", line)
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func writeTimes(sb *strings.Builder, r benchmark.Result) {
	fmt.Fprintf(sb, "   ClickHouse: %.3fs\n", r.ClickHouseTime)
	fmt.Fprintf(sb, "   MySQL: %.3fs\n", r.MySQLTime)
	fmt.Fprintf(sb, "   Speedup: %.1fx\n", r.Speedup)
}

func find(results []benchmark.Result, query string) (benchmark.Result, bool) {
	for _, r := range results {
		if r.Query == query {
			return r, true
		}
	}

	return benchmark.Result{}, false
}
