package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethpandaops/columnbench/pkg/database"
	"github.com/sirupsen/logrus"
)

// ErrUndefinedSpeedup is returned when the column engine time is not positive.
var ErrUndefinedSpeedup = errors.New("speedup undefined: column engine time is zero")

// Speedup returns rowSec / colSec exactly, without clamping.
func Speedup(rowSec, colSec float64) (float64, error) {
	if colSec <= 0 {
		return 0, ErrUndefinedSpeedup
	}

	return rowSec / colSec, nil
}

// Result is the outcome of one catalog query against both engines.
type Result struct {
	Query          string  `json:"query"`
	ClickHouseTime float64 `json:"clickhouse_time"`
	MySQLTime      float64 `json:"mysql_time"`
	Speedup        float64 `json:"speedup"`
	// RowsReturned is the column engine row count.
	RowsReturned int `json:"rows_returned"`

	MySQLRows int   `json:"-"`
	Err       error `json:"-"`
}

// OK reports whether both engines ran the query and the speedup is defined.
func (r *Result) OK() bool {
	return r.Err == nil
}

// Options configures a Runner.
type Options struct {
	// ContinueOnError runs the remaining queries after a failure.
	ContinueOnError bool
	// QueryTimeout bounds each engine call. Zero means no timeout.
	QueryTimeout time.Duration
}

// Runner times each catalog query on the column engine, then the row engine.
type Runner struct {
	log     logrus.FieldLogger
	column  database.Engine
	row     database.Engine
	catalog []Query
	opts    Options
	now     func() time.Time
}

// NewRunner creates a runner over the two engines.
func NewRunner(log logrus.FieldLogger, column, row database.Engine, catalog []Query, opts Options) *Runner {
	return &Runner{
		log:     log.WithField("component", "benchmark"),
		column:  column,
		row:     row,
		catalog: catalog,
		opts:    opts,
		now:     time.Now,
	}
}

// Run executes the catalog sequentially and returns one Result per query,
// in catalog order. If ContinueOnError is false, the run stops at the first
// failed query and returns the results gathered so far. Cancelling ctx
// stops the run between queries.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(r.catalog))

	var errs []error

	for _, q := range r.catalog {
		if err := ctx.Err(); err != nil {
			return results, errors.Join(append(errs, err)...)
		}

		res := r.runQuery(ctx, q)
		results = append(results, res)

		log := r.log.WithField("query", q.Name)

		if res.Err != nil {
			log.WithError(res.Err).Error("Query failed")
			errs = append(errs, fmt.Errorf("query %s: %w", q.Name, res.Err))

			if !r.opts.ContinueOnError {
				return results, errors.Join(errs...)
			}

			continue
		}

		log.WithFields(logrus.Fields{
			"clickhouse": fmt.Sprintf("%.2fs", res.ClickHouseTime),
			"mysql":      fmt.Sprintf("%.2fs", res.MySQLTime),
			"speedup":    fmt.Sprintf("%.1fx", res.Speedup),
		}).Info("Query completed")
	}

	return results, errors.Join(errs...)
}

func (r *Runner) runQuery(ctx context.Context, q Query) Result {
	res := Result{Query: q.Name}

	colSec, colRows, colErr := r.timed(ctx, r.column, q.ColumnSQL)
	rowSec, rowRows, rowErr := r.timed(ctx, r.row, q.RowSQL)

	res.ClickHouseTime = colSec
	res.MySQLTime = rowSec
	res.RowsReturned = colRows
	res.MySQLRows = rowRows

	if colErr != nil || rowErr != nil {
		res.Err = errors.Join(colErr, rowErr)

		return res
	}

	if colRows != rowRows {
		r.log.WithFields(logrus.Fields{
			"query":           q.Name,
			"clickhouse_rows": colRows,
			"mysql_rows":      rowRows,
		}).Warn("Engines returned different row counts")
	}

	speedup, err := Speedup(rowSec, colSec)
	if err != nil {
		res.Err = err

		return res
	}

	res.Speedup = speedup

	return res
}

// timed measures wall-clock time around a synchronous query, including
// draining every returned row.
func (r *Runner) timed(ctx context.Context, e database.Engine, sql string) (float64, int, error) {
	if r.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.opts.QueryTimeout)
		defer cancel()
	}

	start := r.now()
	rows, err := e.Query(ctx, sql)
	elapsed := r.now().Sub(start).Seconds()

	if err != nil {
		return elapsed, rows, fmt.Errorf("%s: %w", e.Name(), err)
	}

	return elapsed, rows, nil
}
