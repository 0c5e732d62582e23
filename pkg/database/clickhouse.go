package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/dataset"
	"github.com/ethpandaops/columnbench/pkg/engine"
	"github.com/sirupsen/logrus"
)

// ClickHouseDDL mirrors the log record in ClickHouse types.
const ClickHouseDDL = `
CREATE TABLE IF NOT EXISTS web_logs (
	timestamp DateTime,
	user_id Int32,
	ip_address String,
	url String,
	status_code Int16,
	response_time_ms Int32
) ENGINE = MergeTree()
ORDER BY timestamp`

type clickHouse struct {
	log       logrus.FieldLogger
	conn      driver.Conn
	batchSize int
}

// NewClickHouse opens a native-protocol connection to ClickHouse.
func NewClickHouse(log logrus.FieldLogger, cfg *config.ClickHouseConfig) (Engine, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.NativePort))},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = config.DefaultBatchSize
	}

	return &clickHouse{
		log:       log.WithField("engine", engine.TypeClickHouse),
		conn:      conn,
		batchSize: batchSize,
	}, nil
}

// Ensure interface compliance.
var _ Engine = (*clickHouse)(nil)

func (c *clickHouse) Name() string {
	return string(engine.TypeClickHouse)
}

func (c *clickHouse) Ping(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("pinging clickhouse: %w", err)
	}

	return nil
}

func (c *clickHouse) CreateTable(ctx context.Context) error {
	if err := c.conn.Exec(ctx, ClickHouseDDL); err != nil {
		return fmt.Errorf("creating clickhouse table: %w", err)
	}

	return nil
}

// BulkLoad streams the CSV into batched native inserts.
func (c *clickHouse) BulkLoad(ctx context.Context, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r, err := dataset.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	var (
		batch   driver.Batch
		pending int
		loaded  int64
	)

	send := func() error {
		if err := batch.Send(); err != nil {
			return fmt.Errorf("sending batch: %w", err)
		}

		loaded += int64(pending)
		c.log.WithField("rows", loaded).Debug("Sent batch")

		batch = nil
		pending = 0

		return nil
	}

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			c.abort(batch)

			return loaded, err
		}

		if batch == nil {
			batch, err = c.conn.PrepareBatch(ctx, "INSERT INTO "+TableName)
			if err != nil {
				return loaded, fmt.Errorf("preparing batch: %w", err)
			}
		}

		if err := batch.Append(
			rec.Timestamp,
			rec.UserID,
			rec.IPAddress,
			rec.URL,
			rec.StatusCode,
			rec.ResponseTimeMs,
		); err != nil {
			c.abort(batch)

			return loaded, fmt.Errorf("appending row: %w", err)
		}

		pending++

		if pending == c.batchSize {
			if err := send(); err != nil {
				return loaded, err
			}
		}
	}

	if batch != nil {
		if err := send(); err != nil {
			return loaded, err
		}
	}

	return loaded, nil
}

func (c *clickHouse) abort(batch driver.Batch) {
	if batch == nil {
		return
	}

	if err := batch.Abort(); err != nil {
		c.log.WithError(err).Debug("Failed to abort batch")
	}
}

func (c *clickHouse) Query(ctx context.Context, sql string) (int, error) {
	rows, err := c.conn.Query(ctx, sql)
	if err != nil {
		return 0, fmt.Errorf("querying clickhouse: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			c.log.WithError(err).Debug("Error while closing rows")
		}
	}()

	n := 0
	for rows.Next() {
		n++
	}

	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("reading clickhouse rows: %w", err)
	}

	return n, nil
}

func (c *clickHouse) Count(ctx context.Context) (int64, error) {
	var n uint64
	if err := c.conn.QueryRow(ctx, "SELECT count() FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting clickhouse rows: %w", err)
	}

	return int64(n), nil
}

func (c *clickHouse) Close() error {
	return c.conn.Close()
}
