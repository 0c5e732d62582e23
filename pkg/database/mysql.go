package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/ethpandaops/columnbench/pkg/engine"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// MySQLDDL mirrors the log record in MySQL types, with secondary indexes
// on timestamp and user_id.
const MySQLDDL = `
CREATE TABLE IF NOT EXISTS web_logs (
	timestamp DATETIME,
	user_id INT,
	ip_address VARCHAR(15),
	url VARCHAR(255),
	status_code SMALLINT,
	response_time_ms INT,
	INDEX(timestamp),
	INDEX(user_id)
)`

type mySQL struct {
	log logrus.FieldLogger
	db  *sql.DB
}

// NewMySQL creates a connection pool for MySQL.
func NewMySQL(log logrus.FieldLogger, cfg *config.MySQLConfig) (Engine, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("creating mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)

	return &mySQL{
		log: log.WithField("engine", engine.TypeMySQL),
		db:  db,
	}, nil
}

// Ensure interface compliance.
var _ Engine = (*mySQL)(nil)

func (m *mySQL) Name() string {
	return string(engine.TypeMySQL)
}

func (m *mySQL) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging mysql: %w", err)
	}

	return nil
}

func (m *mySQL) CreateTable(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, MySQLDDL); err != nil {
		return fmt.Errorf("creating mysql table: %w", err)
	}

	return nil
}

// BulkLoad issues LOAD DATA LOCAL INFILE for the file. The path is
// registered with the driver's allow list only for the duration of the load.
func (m *mySQL) BulkLoad(ctx context.Context, path string) (int64, error) {
	p, err := LocalInfilePath(path)
	if err != nil {
		return 0, err
	}

	mysql.RegisterLocalFile(p)
	defer mysql.DeregisterLocalFile(p)

	res, err := m.db.ExecContext(ctx, LoadDataStatement(p))
	if err != nil {
		return 0, fmt.Errorf("loading %s into mysql: %w", p, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}

	return n, nil
}

// LocalInfilePath returns the absolute path with forward slashes, the
// form MySQL accepts on every platform.
func LocalInfilePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	return filepath.ToSlash(abs), nil
}

// LoadDataStatement builds the bulk load statement, skipping the header row.
func LoadDataStatement(path string) string {
	quoted := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(path)

	return "LOAD DATA LOCAL INFILE '" + quoted + "' INTO TABLE " + TableName +
		` FIELDS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '"'` +
		` LINES TERMINATED BY '\n' IGNORE 1 ROWS`
}

func (m *mySQL) Query(ctx context.Context, query string) (int, error) {
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("querying mysql: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			m.log.WithError(err).Debug("Error while closing rows")
		}
	}()

	n := 0
	for rows.Next() {
		n++
	}

	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("reading mysql rows: %w", err)
	}

	return n, nil
}

func (m *mySQL) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting mysql rows: %w", err)
	}

	return n, nil
}

func (m *mySQL) Close() error {
	return m.db.Close()
}
