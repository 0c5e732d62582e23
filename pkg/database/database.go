package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/sirupsen/logrus"
)

// TableName is the benchmark table created in both engines.
const TableName = "web_logs"

// Engine is a database under benchmark.
type Engine interface {
	// Name returns the engine type name ("clickhouse" or "mysql").
	Name() string

	// Ping checks the connection.
	Ping(ctx context.Context) error

	// CreateTable creates the web_logs table if it does not already exist.
	CreateTable(ctx context.Context) error

	// BulkLoad imports the generated CSV file using the engine's native
	// bulk path and returns the number of rows loaded.
	BulkLoad(ctx context.Context, path string) (int64, error)

	// Query runs sql, drains every row and returns the row count.
	Query(ctx context.Context, sql string) (int, error)

	// Count returns the number of rows in web_logs.
	Count(ctx context.Context) (int64, error)

	// Close releases the connection.
	Close() error
}

// Pair is the column engine and row engine under comparison.
type Pair struct {
	Column Engine
	Row    Engine
}

// Engines returns both engines, column engine first.
func (p *Pair) Engines() []Engine {
	return []Engine{p.Column, p.Row}
}

// Close closes both engines.
func (p *Pair) Close() error {
	var errs []error

	for _, e := range p.Engines() {
		if e == nil {
			continue
		}

		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", e.Name(), err))
		}
	}

	return errors.Join(errs...)
}

// Open creates both engine connections. No network round trip is made
// until the first call on an engine.
func Open(log logrus.FieldLogger, cfg *config.Config) (*Pair, error) {
	ch, err := NewClickHouse(log, &cfg.ClickHouse)
	if err != nil {
		return nil, err
	}

	my, err := NewMySQL(log, &cfg.MySQL)
	if err != nil {
		_ = ch.Close()

		return nil, err
	}

	return &Pair{Column: ch, Row: my}, nil
}
