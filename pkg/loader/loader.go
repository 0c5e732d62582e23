package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethpandaops/columnbench/pkg/database"
	"github.com/sirupsen/logrus"
)

// ErrDataFileMissing is returned when the generated data file does not exist.
var ErrDataFileMissing = errors.New("data file not found")

// Step names a load stage operation.
type Step string

const (
	StepPing        Step = "ping"
	StepCreateTable Step = "create_table"
	StepLoad        Step = "load"
	StepVerify      Step = "verify"
)

// StepResult records the outcome of one step against one engine.
type StepResult struct {
	Engine   string
	Step     Step
	Duration time.Duration
	Rows     int64
	Err      error
}

// Options configures a Coordinator.
type Options struct {
	DataPath string
	// ContinueOnError keeps going after a failed step. When false the
	// coordinator stops at the first failure.
	ContinueOnError bool
}

// Coordinator creates the benchmark table in each engine and bulk-loads
// the generated file into it.
type Coordinator struct {
	log     logrus.FieldLogger
	engines []database.Engine
	opts    Options
}

// NewCoordinator creates a coordinator over the given engines.
func NewCoordinator(log logrus.FieldLogger, engines []database.Engine, opts Options) *Coordinator {
	return &Coordinator{
		log:     log.WithField("component", "loader"),
		engines: engines,
		opts:    opts,
	}
}

// Run checks connectivity and creates the table on every engine, then
// loads the data file into each. Steps are not transactional; a partial
// load is left in place. All step results are returned along with the
// joined step errors.
func (c *Coordinator) Run(ctx context.Context) ([]StepResult, error) {
	var (
		results []StepResult
		errs    []error
	)

	record := func(res StepResult) bool {
		results = append(results, res)

		log := c.log.WithFields(logrus.Fields{
			"engine":   res.Engine,
			"step":     res.Step,
			"duration": res.Duration,
		})

		if res.Err != nil {
			log.WithError(res.Err).Error("Step failed")
			errs = append(errs, fmt.Errorf("%s %s: %w", res.Engine, res.Step, res.Err))

			return c.opts.ContinueOnError
		}

		if res.Step == StepLoad || res.Step == StepVerify {
			log = log.WithField("rows", res.Rows)
		}

		log.Info("Step completed")

		return true
	}

	phases := []struct {
		step Step
		fn   func(ctx context.Context, e database.Engine) (int64, error)
	}{
		{StepPing, func(ctx context.Context, e database.Engine) (int64, error) {
			return 0, e.Ping(ctx)
		}},
		{StepCreateTable, func(ctx context.Context, e database.Engine) (int64, error) {
			return 0, e.CreateTable(ctx)
		}},
	}

	for _, phase := range phases {
		for _, e := range c.engines {
			if err := ctx.Err(); err != nil {
				return results, errors.Join(append(errs, err)...)
			}

			if !record(c.runStep(ctx, e, phase.step, phase.fn)) {
				return results, errors.Join(errs...)
			}
		}
	}

	if _, err := os.Stat(c.opts.DataPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrDataFileMissing, c.opts.DataPath)
		}

		c.log.WithError(err).Error("Cannot load data")

		return results, errors.Join(append(errs, err)...)
	}

	for _, e := range c.engines {
		if err := ctx.Err(); err != nil {
			return results, errors.Join(append(errs, err)...)
		}

		if !record(c.runStep(ctx, e, StepLoad, func(ctx context.Context, e database.Engine) (int64, error) {
			return e.BulkLoad(ctx, c.opts.DataPath)
		})) {
			return results, errors.Join(errs...)
		}

		if !record(c.runStep(ctx, e, StepVerify, func(ctx context.Context, e database.Engine) (int64, error) {
			return e.Count(ctx)
		})) {
			return results, errors.Join(errs...)
		}
	}

	return results, errors.Join(errs...)
}

func (c *Coordinator) runStep(
	ctx context.Context,
	e database.Engine,
	step Step,
	fn func(ctx context.Context, e database.Engine) (int64, error),
) StepResult {
	start := time.Now()
	rows, err := fn(ctx, e)

	return StepResult{
		Engine:   e.Name(),
		Step:     step,
		Duration: time.Since(start),
		Rows:     rows,
		Err:      err,
	}
}
