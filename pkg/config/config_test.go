package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, `
global:
  log_level: info
  docker_network: test-network
provision:
  startup_grace_period: 5s
mysql:
  password: yaml-password
dataset:
  rows: 500
  path: ./logs.csv
benchmark:
  results_file: ./original.csv
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "test-network", cfg.Global.DockerNetwork)
				assert.Equal(t, 5*time.Second, cfg.Provision.StartupGracePeriod)
				assert.Equal(t, "yaml-password", cfg.MySQL.Password)
				assert.Equal(t, 500, cfg.Dataset.Rows)
				assert.Nil(t, cfg.Dataset.Seed)
			},
		},
		{
			name: "string override - mysql password",
			envVars: map[string]string{
				"COLUMNBENCH_MYSQL_PASSWORD": "env-password",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "env-password", cfg.MySQL.Password)
			},
		},
		{
			name: "int override - dataset rows",
			envVars: map[string]string{
				"COLUMNBENCH_DATASET_ROWS": "100",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 100, cfg.Dataset.Rows)
			},
		},
		{
			name: "duration override - grace period",
			envVars: map[string]string{
				"COLUMNBENCH_PROVISION_STARTUP_GRACE_PERIOD": "1m",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, time.Minute, cfg.Provision.StartupGracePeriod)
			},
		},
		{
			name: "boolean override - benchmark continue_on_error",
			envVars: map[string]string{
				"COLUMNBENCH_BENCHMARK_CONTINUE_ON_ERROR": "false",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Benchmark.ContinueOnError)
			},
		},
		{
			name: "seed override",
			envVars: map[string]string{
				"COLUMNBENCH_DATASET_SEED": "42",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Dataset.Seed)
				assert.Equal(t, int64(42), *cfg.Dataset.Seed)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultDockerNetwork, cfg.Global.DockerNetwork)
	assert.Equal(t, DefaultStartupGracePeriod, cfg.Provision.StartupGracePeriod)
	assert.Equal(t, DefaultClickHouseImage, cfg.ClickHouse.Image)
	assert.Equal(t, 8123, cfg.ClickHouse.HTTPPort)
	assert.Equal(t, 9000, cfg.ClickHouse.NativePort)
	assert.Equal(t, DefaultMySQLImage, cfg.MySQL.Image)
	assert.Equal(t, 3306, cfg.MySQL.Port)
	assert.Equal(t, "benchmark", cfg.MySQL.Database)
	assert.Equal(t, "root", cfg.MySQL.User)
	assert.Equal(t, "password", cfg.MySQL.Password)
	assert.Equal(t, DefaultRows, cfg.Dataset.Rows)
	assert.Equal(t, DefaultDatasetPath, cfg.Dataset.Path)
	assert.Equal(t, DefaultResultsFile, cfg.Benchmark.ResultsFile)
	assert.True(t, cfg.Load.ContinueOnError)
	assert.True(t, cfg.Benchmark.ContinueOnError)
	assert.Empty(t, cfg.Benchmark.Queries)
	assert.False(t, cfg.S3Enabled())

	require.NoError(t, cfg.Validate())
}

func TestLoad_MergesFilesInOrder(t *testing.T) {
	base := writeConfig(t, `
dataset:
  rows: 200
mysql:
  host: db-a
`)
	override := writeConfig(t, `
mysql:
  host: db-b
benchmark:
  queries:
    - name: count_total
      clickhouse: SELECT count() FROM web_logs
      mysql: SELECT COUNT(*) FROM web_logs
`)

	cfg, err := Load(base, override)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Dataset.Rows)
	assert.Equal(t, "db-b", cfg.MySQL.Host)
	require.Len(t, cfg.Benchmark.Queries, 1)
	assert.Equal(t, "count_total", cfg.Benchmark.Queries[0].Name)
	assert.Equal(t, "SELECT count() FROM web_logs", cfg.Benchmark.Queries[0].ClickHouse)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: yaml: content:")

	_, err := Load(path)
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		errSubstr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name:      "unknown pull policy",
			mutate:    func(cfg *Config) { cfg.Provision.PullPolicy = "sometimes" },
			errSubstr: "unknown policy",
		},
		{
			name:      "port out of range",
			mutate:    func(cfg *Config) { cfg.MySQL.Port = 70000 },
			errSubstr: "mysql.port",
		},
		{
			name:      "negative rows",
			mutate:    func(cfg *Config) { cfg.Dataset.Rows = -1 },
			errSubstr: "dataset.rows",
		},
		{
			name: "bad memory limit",
			mutate: func(cfg *Config) {
				cfg.ClickHouse.ResourceLimits = &ResourceLimitsConfig{Memory: "lots"}
			},
			errSubstr: "invalid memory limit",
		},
		{
			name: "duplicate query names",
			mutate: func(cfg *Config) {
				q := QueryConfig{Name: "q", ClickHouse: "SELECT 1", MySQL: "SELECT 1"}
				cfg.Benchmark.Queries = []QueryConfig{q, q}
			},
			errSubstr: "duplicate name",
		},
		{
			name: "query missing mysql SQL",
			mutate: func(cfg *Config) {
				cfg.Benchmark.Queries = []QueryConfig{{Name: "q", ClickHouse: "SELECT 1"}}
			},
			errSubstr: "both clickhouse and mysql",
		},
		{
			name: "s3 without bucket",
			mutate: func(cfg *Config) {
				cfg.ResultsUpload = &ResultsUploadConfig{S3: &S3UploadConfig{Enabled: true}}
			},
			errSubstr: "bucket is required",
		},
		{
			name: "unsupported history driver",
			mutate: func(cfg *Config) {
				cfg.History.Enabled = true
				cfg.History.Driver = "oracle"
			},
			errSubstr: "unsupported driver",
		},
		{
			name:      "malformed results owner",
			mutate:    func(cfg *Config) { cfg.Report.ResultsOwner = "nobody" },
			errSubstr: "report.results_owner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.errSubstr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestResourceLimitsConfig_MemoryBytes(t *testing.T) {
	var nilLimits *ResourceLimitsConfig

	b, err := nilLimits.MemoryBytes()
	require.NoError(t, err)
	assert.Zero(t, b)

	b, err = (&ResourceLimitsConfig{Memory: "2g"}).MemoryBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024*1024), b)
}
