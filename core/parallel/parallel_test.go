package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeN_CoversEveryItemOnce(t *testing.T) {
	tests := []struct {
		name  string
		items int
		nJobs int
	}{
		{"sequential", 10, 1},
		{"two workers", 101, 2},
		{"all cores", 100, -1},
		{"more jobs than items", 3, 8},
		{"zero items", 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.items)
			ParallelizeN(tt.items, tt.nJobs, func(start, end int) {
				for i := start; i < end; i++ {
					atomic.AddInt32(&seen[i], 1)
				}
			})
			for i, c := range seen {
				assert.Equalf(t, int32(1), c, "item %d visited %d times", i, c)
			}
		})
	}
}

func TestParallelizeN_SingleJobRunsInline(t *testing.T) {
	var calls int
	ParallelizeN(5, 1, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 5, end)
	})
	assert.Equal(t, 1, calls)
}

func TestWorkers(t *testing.T) {
	cpus := runtime.NumCPU()
	assert.Equal(t, cpus, Workers(0))
	assert.Equal(t, cpus, Workers(-1))
	assert.Equal(t, cpus, Workers(cpus+10))
	assert.Equal(t, 1, Workers(1))
}

func TestParallelizeWithThreshold(t *testing.T) {
	tests := []struct {
		name      string
		items     int
		wantCalls int32
	}{
		{"below threshold runs once", 50, 1},
		{"at threshold runs once", 100, 1},
		{"above threshold covers all", 500, -1},
		{"zero items", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var total int64
			var calls int32
			ParallelizeWithThreshold(tt.items, 100, 2, func(start, end int) {
				atomic.AddInt32(&calls, 1)
				atomic.AddInt64(&total, int64(end-start))
			})
			assert.Equal(t, int64(tt.items), total)
			if tt.wantCalls >= 0 {
				assert.Equal(t, tt.wantCalls, calls)
			}
		})
	}
}
