package profiler

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Carmen-Shannon/oxy-morph/engine/logger"
)

// Report is one interval of throughput and memory statistics.
type Report struct {
	Elapsed        time.Duration
	TicksPerSec    float64
	BlendsPerSec   float64
	VerticesPerSec float64
	HeapMB         float64
	AllocRateMB    float64
	SysMB          float64
	GCCount        uint32
	LastPauseUs    uint64
	MaxPauseUs     uint64
}

// Profiler tracks tick rate, blend throughput and memory statistics.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	tickCount      int
	blendCount     int
	vertexCount    int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	log            *log.Logger
	now            func() time.Time
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - interval: the time between reports. Zero or negative defaults to 1 second.
//   - l: the logger reports are written to, or nil for the "profiler" component logger
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration, l *log.Logger) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	if l == nil {
		l = logger.Component("profiler")
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		log:            l,
		now:            time.Now,
	}
}

// Tick should be called once per engine tick with the work done during that tick.
// Logs a report when the update interval has elapsed.
//
// Parameters:
//   - blends: the number of meshes blended this tick
//   - vertices: the number of vertices blended this tick
//
// Returns:
//   - Report: the report logged this tick
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(blends, vertices int) (Report, bool) {
	p.tickCount++
	p.blendCount += blends
	p.vertexCount += vertices

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return Report{}, false
	}

	secs := elapsed.Seconds()
	runtime.ReadMemStats(&p.memStats)
	rep := Report{
		Elapsed:        elapsed,
		TicksPerSec:    float64(p.tickCount) / secs,
		BlendsPerSec:   float64(p.blendCount) / secs,
		VerticesPerSec: float64(p.vertexCount) / secs,
		HeapMB:         float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:          float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:    float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / secs,
		GCCount:        p.memStats.NumGC,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses
		rep.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			rep.MaxPauseUs = max(rep.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.log.Info("profile",
		"tps", rep.TicksPerSec,
		"blends_per_sec", rep.BlendsPerSec,
		"vertices_per_sec", rep.VerticesPerSec,
		"heap_mb", rep.HeapMB,
		"alloc_rate_mb", rep.AllocRateMB,
		"gc", rep.GCCount,
		"gc_last_us", rep.LastPauseUs,
		"gc_max_us", rep.MaxPauseUs,
		"sys_mb", rep.SysMB,
	)

	p.tickCount = 0
	p.blendCount = 0
	p.vertexCount = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return rep, true
}
