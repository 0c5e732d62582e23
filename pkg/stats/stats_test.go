package stats

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDocker(t *testing.T) {
	resp := &container.StatsResponse{}
	resp.MemoryStats.Usage = 4096
	resp.CPUStats.CPUUsage.TotalUsage = 2_500_000
	resp.BlkioStats.IoServiceBytesRecursive = []container.BlkioStatEntry{
		{Op: "Read", Value: 100},
		{Op: "read", Value: 50},
		{Op: "Write", Value: 70},
		{Op: "Total", Value: 220},
	}
	resp.BlkioStats.IoServicedRecursive = []container.BlkioStatEntry{
		{Op: "Read", Value: 3},
		{Op: "write", Value: 2},
	}

	assert.Equal(t, &Stats{
		Memory:       4096,
		CPUUsage:     2500,
		DiskRead:     150,
		DiskWrite:    70,
		DiskReadOps:  3,
		DiskWriteOps: 2,
	}, FromDocker(resp))
}

func TestComputeDelta(t *testing.T) {
	tests := []struct {
		name   string
		before *Stats
		after  *Stats
		want   *Delta
	}{
		{
			name:   "nil before",
			before: nil,
			after:  &Stats{},
			want:   nil,
		},
		{
			name:   "growth",
			before: &Stats{Memory: 100, CPUUsage: 10, DiskRead: 5, DiskWrite: 5, DiskReadOps: 1, DiskWriteOps: 1},
			after:  &Stats{Memory: 150, CPUUsage: 40, DiskRead: 25, DiskWrite: 6, DiskReadOps: 4, DiskWriteOps: 2},
			want:   &Delta{MemoryDelta: 50, CPUDeltaUsec: 30, DiskReadBytes: 20, DiskWriteBytes: 1, DiskReadOps: 3, DiskWriteOps: 1},
		},
		{
			name:   "counters reset",
			before: &Stats{Memory: 150, CPUUsage: 40, DiskRead: 25},
			after:  &Stats{Memory: 100, CPUUsage: 5, DiskRead: 1},
			want:   &Delta{MemoryDelta: -50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeDelta(tt.before, tt.after))
		})
	}
}

type fakeSource struct {
	usage map[string]uint64
	fail  map[string]bool
}

func (f *fakeSource) ContainerStats(_ context.Context, id string) (*container.StatsResponse, error) {
	if f.fail[id] {
		return nil, errors.New("container gone")
	}

	resp := &container.StatsResponse{}
	resp.CPUStats.CPUUsage.TotalUsage = f.usage[id]

	return resp, nil
}

func TestSampler(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	src := &fakeSource{
		usage: map[string]uint64{"ch-id": 1_000_000, "my-id": 3_000_000},
		fail:  map[string]bool{},
	}

	s := NewSampler(log, src, map[string]string{"clickhouse": "ch-id", "mysql": "my-id"})

	before := s.Sample(context.Background())
	require.Len(t, before, 2)

	src.usage["ch-id"] = 2_000_000
	src.fail["my-id"] = true

	after := s.Sample(context.Background())
	require.Len(t, after, 1)

	deltas := s.LogDeltas(before, after)
	require.Len(t, deltas, 1)
	assert.Equal(t, uint64(1000), deltas["clickhouse"].CPUDeltaUsec)
}
