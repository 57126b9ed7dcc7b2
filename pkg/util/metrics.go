package util

import (
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/api/write"
)

func TimeOperationMicroseconds(op func()) int64 {
	start := time.Now()
	op()
	return time.Since(start).Microseconds()
}

// DiscardWriteAPI satisfies api.WriteAPI and drops every point. Used when no
// InfluxDB host is configured.
type DiscardWriteAPI struct{}

func (d *DiscardWriteAPI) WriteRecord(line string)       {}
func (d *DiscardWriteAPI) WritePoint(point *write.Point) {}
func (d *DiscardWriteAPI) Flush()                        {}
func (d *DiscardWriteAPI) Close()                        {}
func (d *DiscardWriteAPI) Errors() <-chan error          { return nil }

// PointRecorder satisfies api.WriteAPI and keeps every point in memory.
type PointRecorder struct {
	mu     sync.Mutex
	points []*write.Point
}

func (p *PointRecorder) WriteRecord(line string) {}

func (p *PointRecorder) WritePoint(point *write.Point) {
	p.mu.Lock()
	p.points = append(p.points, point)
	p.mu.Unlock()
}

func (p *PointRecorder) Flush() {}
func (p *PointRecorder) Close() {}

func (p *PointRecorder) Errors() <-chan error { return nil }

// Count returns how many points with the given measurement name were written.
func (p *PointRecorder) Count(measurement string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, point := range p.points {
		if point.Name() == measurement {
			n++
		}
	}
	return n
}
