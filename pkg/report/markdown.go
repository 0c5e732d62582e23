package report

import (
	"fmt"
	"strings"
)

// GenerateMarkdown renders a bundle as a Markdown summary.
func GenerateMarkdown(b *Bundle) string {
	var sb strings.Builder

	sb.Grow(2048)

	fmt.Fprintf(&sb, "# Benchmark Report: %s\n\n", b.Summary.Timestamp)

	writeSummary(&sb, &b.Summary)
	writeResults(&sb, b)
	writeGroups(&sb, b)
	writeSystem(&sb, b.Metadata.System)

	return sb.String()
}

func writeSummary(sb *strings.Builder, s *Summary) {
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")
	fmt.Fprintf(sb, "| Queries | %d |\n", s.TotalQueries)
	fmt.Fprintf(sb, "| Average speedup | %.1fx |\n", s.AverageSpeedup)
	fmt.Fprintf(sb, "| Max speedup | %.1fx (%s) |\n", s.MaxSpeedup, s.BestQuery)
	fmt.Fprintf(sb, "| Min speedup | %.1fx (%s) |\n", s.MinSpeedup, s.WorstQuery)
	sb.WriteString("\n")
}

func writeResults(sb *strings.Builder, b *Bundle) {
	sb.WriteString("## Results\n\n")
	sb.WriteString("| Query | ClickHouse (s) | MySQL (s) | Speedup | Rows | Tier |\n")
	sb.WriteString("|---|---:|---:|---:|---:|---|\n")

	for _, r := range b.DetailedResults {
		fmt.Fprintf(sb, "| %s | %.3f | %.3f | %.1fx | %d | %s |\n",
			r.Query, r.ClickHouseTime, r.MySQLTime, r.Speedup, r.RowsReturned, Classify(r.Speedup))
	}

	sb.WriteString("\n")
}

func writeGroups(sb *strings.Builder, b *Bundle) {
	groups := Groups(b.DetailedResults)
	if len(groups) == 0 {
		return
	}

	sb.WriteString("## Query Groups\n\n")
	sb.WriteString("| Group | Queries | Average speedup |\n")
	sb.WriteString("|---|---:|---:|\n")

	for _, g := range groups {
		fmt.Fprintf(sb, "| %s | %d | %.1fx |\n", g.Name, g.Queries, g.AverageSpeedup)
	}

	sb.WriteString("\n")
}

func writeSystem(sb *strings.Builder, sys *SystemInfo) {
	if sys == nil {
		return
	}

	sb.WriteString("## System\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|---|---|\n")

	if sys.Hostname != "" {
		fmt.Fprintf(sb, "| Hostname | %s |\n", sys.Hostname)
	}

	if sys.CPUModel != "" {
		fmt.Fprintf(sb, "| CPU | %s |\n", sys.CPUModel)
	}

	if sys.CPUCores > 0 {
		fmt.Fprintf(sb, "| Cores | %d |\n", sys.CPUCores)
	}

	if sys.MemoryTotalGB > 0 {
		fmt.Fprintf(sb, "| Memory | %.1f GB |\n", sys.MemoryTotalGB)
	}

	if sys.Platform != "" {
		platform := sys.Platform
		if sys.PlatformVersion != "" {
			platform += " " + sys.PlatformVersion
		}

		fmt.Fprintf(sb, "| Platform | %s |\n", platform)
	}

	sb.WriteString("\n")
}
