package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"
)

// Stats is a snapshot of container resource metrics.
type Stats struct {
	Memory       uint64 // Current memory usage (bytes)
	CPUUsage     uint64 // CPU usage (microseconds, cumulative)
	DiskRead     uint64 // Disk read (bytes, cumulative)
	DiskWrite    uint64 // Disk write (bytes, cumulative)
	DiskReadOps  uint64 // Disk read operations (cumulative)
	DiskWriteOps uint64 // Disk write operations (cumulative)
}

// Delta is the difference between two Stats snapshots.
type Delta struct {
	MemoryDelta    int64  // Can be negative if memory freed
	CPUDeltaUsec   uint64 // Always positive (cumulative)
	DiskReadBytes  uint64
	DiskWriteBytes uint64
	DiskReadOps    uint64
	DiskWriteOps   uint64
}

// Source reads raw Docker stats for a container.
type Source interface {
	ContainerStats(ctx context.Context, containerID string) (*container.StatsResponse, error)
}

// FromDocker converts a Docker stats response. CPU time is reported by
// Docker in nanoseconds and stored in microseconds.
func FromDocker(resp *container.StatsResponse) *Stats {
	s := &Stats{
		Memory:   resp.MemoryStats.Usage,
		CPUUsage: resp.CPUStats.CPUUsage.TotalUsage / 1000,
	}

	for _, entry := range resp.BlkioStats.IoServiceBytesRecursive {
		switch entry.Op {
		case "Read", "read":
			s.DiskRead += entry.Value
		case "Write", "write":
			s.DiskWrite += entry.Value
		}
	}

	for _, entry := range resp.BlkioStats.IoServicedRecursive {
		switch entry.Op {
		case "Read", "read":
			s.DiskReadOps += entry.Value
		case "Write", "write":
			s.DiskWriteOps += entry.Value
		}
	}

	return s
}

// ComputeDelta calculates the difference between after and before stats.
// Cumulative counters that went backwards (container restart) yield zero.
func ComputeDelta(before, after *Stats) *Delta {
	if before == nil || after == nil {
		return nil
	}

	return &Delta{
		MemoryDelta:    int64(after.Memory) - int64(before.Memory),
		CPUDeltaUsec:   sub(after.CPUUsage, before.CPUUsage),
		DiskReadBytes:  sub(after.DiskRead, before.DiskRead),
		DiskWriteBytes: sub(after.DiskWrite, before.DiskWrite),
		DiskReadOps:    sub(after.DiskReadOps, before.DiskReadOps),
		DiskWriteOps:   sub(after.DiskWriteOps, before.DiskWriteOps),
	}
}

func sub(after, before uint64) uint64 {
	if after < before {
		return 0
	}

	return after - before
}

// Sampler snapshots the resource usage of the engine containers.
type Sampler struct {
	log        logrus.FieldLogger
	source     Source
	containers map[string]string // engine name -> container ID
}

// NewSampler creates a sampler over the given engine containers.
func NewSampler(log logrus.FieldLogger, source Source, containers map[string]string) *Sampler {
	return &Sampler{
		log:        log.WithField("component", "stats"),
		source:     source,
		containers: containers,
	}
}

// Sample reads one snapshot per engine. Engines whose stats cannot be read
// are logged and left out.
func (s *Sampler) Sample(ctx context.Context) map[string]*Stats {
	out := make(map[string]*Stats, len(s.containers))

	for engine, id := range s.containers {
		resp, err := s.source.ContainerStats(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("engine", engine).Warn("Failed to read container stats")

			continue
		}

		out[engine] = FromDocker(resp)
	}

	return out
}

// LogDeltas logs the per-engine resource usage between two samples.
func (s *Sampler) LogDeltas(before, after map[string]*Stats) map[string]*Delta {
	deltas := make(map[string]*Delta, len(after))

	engines := make([]string, 0, len(after))
	for engine := range after {
		engines = append(engines, engine)
	}

	sort.Strings(engines)

	for _, engine := range engines {
		d := ComputeDelta(before[engine], after[engine])
		if d == nil {
			continue
		}

		deltas[engine] = d

		s.log.WithFields(logrus.Fields{
			"engine":       engine,
			"cpu":          fmt.Sprintf("%.3fs", float64(d.CPUDeltaUsec)/1e6),
			"memory_delta": d.MemoryDelta,
			"disk_read":    d.DiskReadBytes,
			"disk_write":   d.DiskWriteBytes,
		}).Info("Engine resource usage")
	}

	return deltas
}
