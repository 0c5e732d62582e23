package benchmark

import "github.com/ethpandaops/columnbench/pkg/config"

// Query is a named analytical query with SQL text for each engine.
type Query struct {
	Name      string
	ColumnSQL string
	RowSQL    string
}

// DefaultCatalog returns the built-in queries in execution order.
func DefaultCatalog() []Query {
	return []Query{
		same("count_total", "SELECT COUNT(*) FROM web_logs"),
		same("count_by_status", "SELECT status_code, COUNT(*) FROM web_logs GROUP BY status_code"),
		same("avg_response_time", "SELECT AVG(response_time_ms) FROM web_logs"),
		same("top_urls", "SELECT url, COUNT(*) AS cnt FROM web_logs GROUP BY url ORDER BY cnt DESC LIMIT 10"),
		{
			Name:      "hourly_traffic",
			ColumnSQL: "SELECT toHour(timestamp) AS hour, COUNT(*) AS requests FROM web_logs GROUP BY hour ORDER BY hour",
			RowSQL:    "SELECT HOUR(timestamp) AS hour, COUNT(*) AS requests FROM web_logs GROUP BY hour ORDER BY hour",
		},
	}
}

func same(name, sql string) Query {
	return Query{Name: name, ColumnSQL: sql, RowSQL: sql}
}

// CatalogFromConfig converts configured queries, falling back to the
// default catalog when none are configured.
func CatalogFromConfig(queries []config.QueryConfig) []Query {
	if len(queries) == 0 {
		return DefaultCatalog()
	}

	catalog := make([]Query, 0, len(queries))
	for _, q := range queries {
		catalog = append(catalog, Query{
			Name:      q.Name,
			ColumnSQL: q.ClickHouse,
			RowSQL:    q.MySQL,
		})
	}

	return catalog
}
