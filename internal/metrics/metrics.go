package metrics

import (
	"runtime"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/ricesearch/rice-chunker/internal/chunk"
	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

var (
	latencyBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	sizeBuckets    = []float64{64, 128, 256, 512, 1000, 1500, 2000, 4000, 8000}
	countBuckets   = []float64{1, 2, 5, 10, 20, 50, 100, 250, 500}
)

// Metrics holds all application metrics.
type Metrics struct {
	// Chunking
	ChunkRequests   *CounterVec   // labels: language
	ChunkErrors     *CounterVec   // labels: code
	ChunkLatency    *HistogramVec // labels: language
	ChunksPerDoc    *HistogramVec
	ChunkSize       *HistogramVec
	ChunksProduced  *CounterVec
	OversizedChunks *CounterVec

	// Index pipeline
	IndexedFiles *CounterVec // labels: status

	// Sinks
	SinkWrites  *CounterVec   // labels: sink
	SinkRecords *CounterVec   // labels: sink
	SinkErrors  *CounterVec   // labels: sink
	SinkLatency *HistogramVec // labels: sink

	// HTTP
	HTTPRequests         *CounterVec   // labels: method, route, status
	HTTPDuration         *HistogramVec // labels: method, route
	HTTPRequestsInFlight *GaugeVec

	// System
	GoroutineCount *GaugeVec
	MemoryUsage    *GaugeVec // bytes
	Uptime         *GaugeVec // seconds

	startTime time.Time
}

// New creates a metrics instance with every metric registered.
func New() *Metrics {
	return &Metrics{
		ChunkRequests: NewCounterVec("rice_chunk_requests_total",
			"Documents submitted for chunking", "language"),
		ChunkErrors: NewCounterVec("rice_chunk_errors_total",
			"Chunking failures by error code", "code"),
		ChunkLatency: NewHistogramVec("rice_chunk_duration_seconds",
			"Time to parse and chunk one document", latencyBuckets, "language"),
		ChunksPerDoc: NewHistogramVec("rice_chunks_per_document",
			"Chunks produced per document", countBuckets),
		ChunkSize: NewHistogramVec("rice_chunk_size_chars",
			"Logical chunk size in characters", sizeBuckets),
		ChunksProduced: NewCounterVec("rice_chunks_produced_total",
			"Chunks produced"),
		OversizedChunks: NewCounterVec("rice_chunks_oversized_total",
			"Chunks larger than the budget because they could not be split"),

		IndexedFiles: NewCounterVec("rice_indexed_files_total",
			"Files processed by the index pipeline by outcome", "status"),

		SinkWrites: NewCounterVec("rice_sink_writes_total",
			"Batches written to the sink", "sink"),
		SinkRecords: NewCounterVec("rice_sink_records_total",
			"Records written to the sink", "sink"),
		SinkErrors: NewCounterVec("rice_sink_errors_total",
			"Failed sink writes", "sink"),
		SinkLatency: NewHistogramVec("rice_sink_write_duration_seconds",
			"Sink batch write latency", latencyBuckets, "sink"),

		HTTPRequests: NewCounterVec("rice_http_requests_total",
			"HTTP requests", "method", "route", "status"),
		HTTPDuration: NewHistogramVec("rice_http_request_duration_seconds",
			"HTTP request latency", latencyBuckets, "method", "route"),
		HTTPRequestsInFlight: NewGaugeVec("rice_http_requests_in_flight",
			"HTTP requests being served"),

		GoroutineCount: NewGaugeVec("rice_goroutines", "Number of goroutines"),
		MemoryUsage:    NewGaugeVec("rice_memory_bytes", "Heap bytes in use"),
		Uptime:         NewGaugeVec("rice_uptime_seconds", "Seconds since start"),

		startTime: time.Now(),
	}
}

// RecordChunk records one chunking call.
func (m *Metrics) RecordChunk(language string, d time.Duration, chunks []chunk.Chunk, err error) {
	m.ChunkRequests.WithLabels(language).Inc()
	m.ChunkLatency.WithLabels(language).Observe(d.Seconds())

	if err != nil {
		m.ChunkErrors.WithLabels(errors.CodeOf(err)).Inc()
		return
	}

	m.ChunksPerDoc.Observe(float64(len(chunks)))
	m.ChunksProduced.Add(int64(len(chunks)))
	for i := range chunks {
		m.ChunkSize.Observe(float64(utf8.RuneCountInString(chunks[i].Logical())))
		if chunks[i].Oversized {
			m.OversizedChunks.Inc()
		}
	}
}

// RecordFile records the outcome of one indexed file.
func (m *Metrics) RecordFile(status string) {
	m.IndexedFiles.WithLabels(status).Inc()
}

// RecordSinkWrite records one batch written to a sink.
func (m *Metrics) RecordSinkWrite(sink string, records int, d time.Duration, err error) {
	m.SinkWrites.WithLabels(sink).Inc()
	m.SinkLatency.WithLabels(sink).Observe(d.Seconds())
	if err != nil {
		m.SinkErrors.WithLabels(sink).Inc()
		return
	}
	m.SinkRecords.WithLabels(sink).Add(int64(records))
}

// RecordHTTP records one HTTP request.
func (m *Metrics) RecordHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabels(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabels(method, route).Observe(d.Seconds())
}

// updateSystem refreshes the runtime gauges.
func (m *Metrics) updateSystem() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.GoroutineCount.Set(float64(runtime.NumGoroutine()))
	m.MemoryUsage.Set(float64(mem.HeapAlloc))
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
