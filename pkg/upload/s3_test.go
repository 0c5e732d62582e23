package upload

import (
	"io"
	"testing"

	"github.com/ethpandaops/columnbench/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefix(t *testing.T) {
	tests := []struct {
		name       string
		prefix     string
		bundleName string
		want       string
	}{
		{
			name:       "default prefix",
			prefix:     "",
			bundleName: "20240102_030405",
			want:       "columnbench/bundles/20240102_030405",
		},
		{
			name:       "custom prefix",
			prefix:     "team/benchmarks",
			bundleName: "20240102_030405",
			want:       "team/benchmarks/bundles/20240102_030405",
		},
		{
			name:       "trailing slash stripped",
			prefix:     "my-prefix/",
			bundleName: "run123",
			want:       "my-prefix/bundles/run123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &s3Uploader{
				cfg: &config.S3UploadConfig{Prefix: tt.prefix},
			}
			got := u.resolvePrefix(tt.bundleName)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBundleFromPrefix(t *testing.T) {
	assert.Equal(t, "20240102_030405", bundleFromPrefix("columnbench/bundles/", "columnbench/bundles/20240102_030405/"))
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantPrefix string
	}{
		{
			name:       "json report",
			path:       "benchmark_report_20240102_030405.json",
			wantPrefix: "application/json",
		},
		{
			name:       "no extension",
			path:       "results/Makefile",
			wantPrefix: "application/octet-stream",
		},
		{
			name:       "chart",
			path:       "benchmark_results_20240102_030405.png",
			wantPrefix: "image/png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectContentType(tt.path)
			assert.Contains(t, got, tt.wantPrefix)
		})
	}
}

func TestNewS3Uploader(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	_, err := NewS3Uploader(log, &config.S3UploadConfig{})
	require.Error(t, err)

	u, err := NewS3Uploader(log, &config.S3UploadConfig{
		Bucket:         "results",
		EndpointURL:    "http://localhost:9000",
		ForcePathStyle: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, u)
}
