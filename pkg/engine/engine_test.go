package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []Type{TypeClickHouse, TypeMySQL}, r.List())

	spec, err := r.Get(TypeClickHouse)
	require.NoError(t, err)
	assert.Equal(t, []int{8123, 9000}, spec.Ports())
	assert.Equal(t, "columnar", spec.Storage())

	_, err = r.Get("postgres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine type")
}

func TestEnvironment(t *testing.T) {
	tests := []struct {
		name  string
		spec  Spec
		creds Credentials
		want  map[string]string
	}{
		{
			name:  "mysql root account and database",
			spec:  NewMySQLSpec(),
			creds: Credentials{Database: "benchmark", User: "root", Password: "password"},
			want: map[string]string{
				"MYSQL_ROOT_PASSWORD": "password",
				"MYSQL_DATABASE":      "benchmark",
			},
		},
		{
			name:  "clickhouse without password keeps image defaults",
			spec:  NewClickHouseSpec(),
			creds: Credentials{Database: "default", User: "default"},
			want:  nil,
		},
		{
			name:  "clickhouse with password and custom database",
			spec:  NewClickHouseSpec(),
			creds: Credentials{Database: "logs", User: "bench", Password: "secret"},
			want: map[string]string{
				"CLICKHOUSE_USER":     "bench",
				"CLICKHOUSE_PASSWORD": "secret",
				"CLICKHOUSE_DB":       "logs",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Environment(tt.creds))
		})
	}
}
