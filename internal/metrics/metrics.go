package metrics

import "sync/atomic"

// Metrics captures operational counters for loads, views and the drop-folder
// queue.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	processedJobs int64
	failedJobs    int64

	loadsOK     int64
	loadsFailed int64
	bytesLoaded int64
	views       int64
	exports     int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength   int   `json:"queue_length"`
	QueueCapacity int   `json:"queue_capacity"`
	WorkerCount   int   `json:"worker_count"`
	ProcessedJobs int64 `json:"processed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	LoadsOK       int64 `json:"loads_ok"`
	LoadsFailed   int64 `json:"loads_failed"`
	BytesLoaded   int64 `json:"bytes_loaded"`
	Views         int64 `json:"views"`
	Exports       int64 `json:"exports"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordJobCompletion increments processed/failed counters based on outcome.
func (m *Metrics) RecordJobCompletion(err error) {
	atomic.AddInt64(&m.processedJobs, 1)
	if err != nil {
		atomic.AddInt64(&m.failedJobs, 1)
	}
}

// RecordLoad counts one load attempt of size bytes.
func (m *Metrics) RecordLoad(size int, err error) {
	if err != nil {
		atomic.AddInt64(&m.loadsFailed, 1)
		return
	}
	atomic.AddInt64(&m.loadsOK, 1)
	atomic.AddInt64(&m.bytesLoaded, int64(size))
}

// RecordView counts one filter recomputation.
func (m *Metrics) RecordView() { atomic.AddInt64(&m.views, 1) }

// RecordExport counts one CSV download.
func (m *Metrics) RecordExport() { atomic.AddInt64(&m.exports, 1) }

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QueueLength:   int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity: int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:   int(atomic.LoadInt64(&m.workerCount)),
		ProcessedJobs: atomic.LoadInt64(&m.processedJobs),
		FailedJobs:    atomic.LoadInt64(&m.failedJobs),
		LoadsOK:       atomic.LoadInt64(&m.loadsOK),
		LoadsFailed:   atomic.LoadInt64(&m.loadsFailed),
		BytesLoaded:   atomic.LoadInt64(&m.bytesLoaded),
		Views:         atomic.LoadInt64(&m.views),
		Exports:       atomic.LoadInt64(&m.exports),
	}
}
