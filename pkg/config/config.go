package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/ethpandaops/columnbench/pkg/fsutil"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "COLUMNBENCH"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultDockerNetwork is the default Docker network name.
	DefaultDockerNetwork = "columnbench"

	// DefaultPullPolicy is the default image pull policy.
	DefaultPullPolicy = "if-not-present"

	// DefaultDescriptorPath is where the compose descriptor is written.
	DefaultDescriptorPath = "docker-compose.yml"

	// DefaultDataDir is the host directory holding per-engine bind mounts.
	DefaultDataDir = "./data"

	// DefaultStartupGracePeriod is how long setup waits after starting containers.
	DefaultStartupGracePeriod = 30 * time.Second

	// DefaultRows is the default number of generated log records.
	DefaultRows = 10000

	// DefaultDatasetPath is the default generated CSV path.
	DefaultDatasetPath = "web_logs.csv"

	// DefaultResultsFile is the default benchmark output CSV.
	DefaultResultsFile = "benchmark_results.csv"

	// DefaultClickHouseImage is the default ClickHouse server image.
	DefaultClickHouseImage = "clickhouse/clickhouse-server:latest"

	// DefaultMySQLImage is the default MySQL server image.
	DefaultMySQLImage = "mysql:8.0"

	// DefaultBatchSize is the number of rows per ClickHouse insert batch.
	DefaultBatchSize = 10000
)

// Config is the root configuration for columnbench.
type Config struct {
	Global        GlobalConfig         `yaml:"global" mapstructure:"global"`
	Provision     ProvisionConfig      `yaml:"provision" mapstructure:"provision"`
	ClickHouse    ClickHouseConfig     `yaml:"clickhouse" mapstructure:"clickhouse"`
	MySQL         MySQLConfig          `yaml:"mysql" mapstructure:"mysql"`
	Dataset       DatasetConfig        `yaml:"dataset" mapstructure:"dataset"`
	Load          LoadConfig           `yaml:"load" mapstructure:"load"`
	Benchmark     BenchmarkConfig      `yaml:"benchmark" mapstructure:"benchmark"`
	Report        ReportConfig         `yaml:"report" mapstructure:"report"`
	ResultsUpload *ResultsUploadConfig `yaml:"results_upload,omitempty" mapstructure:"results_upload"`
	History       HistoryConfig        `yaml:"history" mapstructure:"history"`
	API           APIConfig            `yaml:"api" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel      string `yaml:"log_level" mapstructure:"log_level"`
	DockerNetwork string `yaml:"docker_network" mapstructure:"docker_network"`
}

// ProvisionConfig controls how the database containers are started.
type ProvisionConfig struct {
	DescriptorPath     string        `yaml:"descriptor_path" mapstructure:"descriptor_path"`
	DataDir            string        `yaml:"data_dir" mapstructure:"data_dir"`
	PullPolicy         string        `yaml:"pull_policy" mapstructure:"pull_policy"`
	StartupGracePeriod time.Duration `yaml:"startup_grace_period" mapstructure:"startup_grace_period"`
}

// ResourceLimitsConfig constrains a database container.
type ResourceLimitsConfig struct {
	CpusetCpus string `yaml:"cpuset_cpus,omitempty" mapstructure:"cpuset_cpus"`
	Memory     string `yaml:"memory,omitempty" mapstructure:"memory"`
}

// MemoryBytes parses Memory ("4g", "512m") into bytes. Empty means unlimited.
func (r *ResourceLimitsConfig) MemoryBytes() (int64, error) {
	if r == nil || r.Memory == "" {
		return 0, nil
	}

	b, err := units.RAMInBytes(r.Memory)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", r.Memory, err)
	}

	return b, nil
}

// ClickHouseConfig holds the columnar engine connection and container settings.
type ClickHouseConfig struct {
	Image          string                `yaml:"image" mapstructure:"image"`
	Host           string                `yaml:"host" mapstructure:"host"`
	HTTPPort       int                   `yaml:"http_port" mapstructure:"http_port"`
	NativePort     int                   `yaml:"native_port" mapstructure:"native_port"`
	Database       string                `yaml:"database" mapstructure:"database"`
	Username       string                `yaml:"username" mapstructure:"username"`
	Password       string                `yaml:"password" mapstructure:"password"`
	DialTimeout    time.Duration         `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	BatchSize      int                   `yaml:"batch_size" mapstructure:"batch_size"`
	ResourceLimits *ResourceLimitsConfig `yaml:"resource_limits,omitempty" mapstructure:"resource_limits"`
}

// MySQLConfig holds the row engine connection and container settings.
type MySQLConfig struct {
	Image          string                `yaml:"image" mapstructure:"image"`
	Host           string                `yaml:"host" mapstructure:"host"`
	Port           int                   `yaml:"port" mapstructure:"port"`
	Database       string                `yaml:"database" mapstructure:"database"`
	User           string                `yaml:"user" mapstructure:"user"`
	Password       string                `yaml:"password" mapstructure:"password"`
	ResourceLimits *ResourceLimitsConfig `yaml:"resource_limits,omitempty" mapstructure:"resource_limits"`
}

// DatasetConfig controls synthetic data generation.
type DatasetConfig struct {
	Rows int    `yaml:"rows" mapstructure:"rows"`
	Path string `yaml:"path" mapstructure:"path"`
	// Seed makes generation reproducible. Unset means a fresh random seed.
	Seed *int64 `yaml:"seed,omitempty" mapstructure:"seed"`
}

// LoadConfig controls the schema and load stage.
type LoadConfig struct {
	ContinueOnError bool `yaml:"continue_on_error" mapstructure:"continue_on_error"`
}

// QueryConfig is a named query with one SQL text per engine.
type QueryConfig struct {
	Name       string `yaml:"name" mapstructure:"name"`
	ClickHouse string `yaml:"clickhouse" mapstructure:"clickhouse"`
	MySQL      string `yaml:"mysql" mapstructure:"mysql"`
}

// BenchmarkConfig controls the query benchmark stage.
type BenchmarkConfig struct {
	ResultsFile     string        `yaml:"results_file" mapstructure:"results_file"`
	ContinueOnError bool          `yaml:"continue_on_error" mapstructure:"continue_on_error"`
	QueryTimeout    time.Duration `yaml:"query_timeout,omitempty" mapstructure:"query_timeout"`
	Queries         []QueryConfig `yaml:"queries,omitempty" mapstructure:"queries"`
	// ContainerStats samples engine container CPU, memory and disk usage
	// around the query run through the Docker stats API.
	ContainerStats bool `yaml:"container_stats,omitempty" mapstructure:"container_stats"`
}

// ReportConfig controls the results reporter.
type ReportConfig struct {
	OutputDir     string `yaml:"output_dir" mapstructure:"output_dir"`
	CollectSystem bool   `yaml:"collect_system" mapstructure:"collect_system"`
	// ResultsOwner is an optional "UID:GID" applied to the results CSV and
	// report bundle files.
	ResultsOwner string `yaml:"results_owner,omitempty" mapstructure:"results_owner"`
}

// ResultsUploadConfig configures uploading report bundles.
type ResultsUploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3UploadConfig contains settings for S3-compatible storage.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty" mapstructure:"storage_class"`
	ACL             string `yaml:"acl,omitempty" mapstructure:"acl"`
}

// S3Enabled reports whether S3 upload is configured and enabled.
func (c *Config) S3Enabled() bool {
	return c.ResultsUpload != nil && c.ResultsUpload.S3 != nil && c.ResultsUpload.S3.Enabled
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled  bool                 `yaml:"enabled" mapstructure:"enabled"`
	Driver   string               `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresConfig       `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite-specific settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty" mapstructure:"ssl_mode"`
}

// APIConfig contains the history API server settings.
type APIConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// Load reads and merges the configuration files in order, then applies
// defaults and COLUMNBENCH_* environment overrides. With no paths the
// configuration is built from defaults and the environment alone.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if i == 0 {
			err = v.ReadConfig(bytes.NewReader(data))
		} else {
			err = v.MergeConfig(bytes.NewReader(data))
		}

		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("dataset.seed"); err != nil {
		return nil, fmt.Errorf("binding dataset seed env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// setDefaults registers every scalar default with viper so that env
// overrides work for keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("global.docker_network", DefaultDockerNetwork)

	v.SetDefault("provision.descriptor_path", DefaultDescriptorPath)
	v.SetDefault("provision.data_dir", DefaultDataDir)
	v.SetDefault("provision.pull_policy", DefaultPullPolicy)
	v.SetDefault("provision.startup_grace_period", DefaultStartupGracePeriod)

	v.SetDefault("clickhouse.image", DefaultClickHouseImage)
	v.SetDefault("clickhouse.host", "localhost")
	v.SetDefault("clickhouse.http_port", 8123)
	v.SetDefault("clickhouse.native_port", 9000)
	v.SetDefault("clickhouse.database", "default")
	v.SetDefault("clickhouse.username", "default")
	v.SetDefault("clickhouse.password", "")
	v.SetDefault("clickhouse.dial_timeout", 30*time.Second)
	v.SetDefault("clickhouse.batch_size", DefaultBatchSize)

	v.SetDefault("mysql.image", DefaultMySQLImage)
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.database", "benchmark")
	v.SetDefault("mysql.user", "root")
	v.SetDefault("mysql.password", "password")

	v.SetDefault("dataset.rows", DefaultRows)
	v.SetDefault("dataset.path", DefaultDatasetPath)

	v.SetDefault("load.continue_on_error", true)

	v.SetDefault("benchmark.results_file", DefaultResultsFile)
	v.SetDefault("benchmark.continue_on_error", true)
	v.SetDefault("benchmark.container_stats", false)

	v.SetDefault("report.output_dir", ".")
	v.SetDefault("report.collect_system", true)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.sqlite.path", "columnbench.db")

	v.SetDefault("api.listen", ":8080")
	v.SetDefault("api.rate_limit.enabled", false)
	v.SetDefault("api.rate_limit.requests_per_minute", 120)
}

// applyDefaults fills values viper cannot express as scalar defaults.
func (c *Config) applyDefaults() {
	if c.History.Driver == "postgres" && c.History.Postgres.SSLMode == "" {
		c.History.Postgres.SSLMode = "disable"
	}

	if c.History.Driver == "postgres" && c.History.Postgres.Port == 0 {
		c.History.Postgres.Port = 5432
	}

	if c.S3Enabled() && c.ResultsUpload.S3.Prefix == "" {
		c.ResultsUpload.S3.Prefix = "columnbench"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, ok := validPullPolicies[c.Provision.PullPolicy]; !ok {
		return fmt.Errorf("provision.pull_policy: unknown policy %q", c.Provision.PullPolicy)
	}

	if c.Provision.StartupGracePeriod < 0 {
		return fmt.Errorf("provision.startup_grace_period must not be negative")
	}

	ports := map[string]int{
		"clickhouse.http_port":   c.ClickHouse.HTTPPort,
		"clickhouse.native_port": c.ClickHouse.NativePort,
		"mysql.port":             c.MySQL.Port,
	}

	for key, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s: port %d out of range", key, port)
		}
	}

	if _, err := c.ClickHouse.ResourceLimits.MemoryBytes(); err != nil {
		return fmt.Errorf("clickhouse.resource_limits: %w", err)
	}

	if _, err := c.MySQL.ResourceLimits.MemoryBytes(); err != nil {
		return fmt.Errorf("mysql.resource_limits: %w", err)
	}

	if c.ClickHouse.BatchSize < 1 {
		return fmt.Errorf("clickhouse.batch_size must be positive")
	}

	if c.Dataset.Rows < 0 {
		return fmt.Errorf("dataset.rows must not be negative")
	}

	if c.Dataset.Path == "" {
		return fmt.Errorf("dataset.path is required")
	}

	seen := make(map[string]struct{}, len(c.Benchmark.Queries))

	for i, q := range c.Benchmark.Queries {
		if q.Name == "" {
			return fmt.Errorf("benchmark.queries[%d]: name is required", i)
		}

		if _, exists := seen[q.Name]; exists {
			return fmt.Errorf("benchmark.queries[%d]: duplicate name %q", i, q.Name)
		}

		seen[q.Name] = struct{}{}

		if q.ClickHouse == "" || q.MySQL == "" {
			return fmt.Errorf("query %q: both clickhouse and mysql SQL are required", q.Name)
		}
	}

	if _, err := fsutil.ParseOwner(c.Report.ResultsOwner); err != nil {
		return fmt.Errorf("report.results_owner: %w", err)
	}

	if c.S3Enabled() && c.ResultsUpload.S3.Bucket == "" {
		return fmt.Errorf("results_upload.s3.bucket is required when s3 upload is enabled")
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite":
			if c.History.SQLite.Path == "" {
				return fmt.Errorf("history.sqlite.path is required")
			}
		case "postgres":
			if c.History.Postgres.Host == "" || c.History.Postgres.Database == "" {
				return fmt.Errorf("history.postgres host and database are required")
			}
		default:
			return fmt.Errorf("history.driver: unsupported driver %q", c.History.Driver)
		}
	}

	return nil
}

var validPullPolicies = map[string]struct{}{
	"always":         {},
	"if-not-present": {},
	"never":          {},
}
