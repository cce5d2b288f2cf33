package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricesearch/rice-chunker/internal/chunk"
	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(5)
	c.Add(-10)
	assert.Equal(t, int64(6), c.Value())
}

func TestGauge(t *testing.T) {
	var g Gauge
	g.Set(42.5)
	assert.Equal(t, 42.5, g.Value())
	g.Inc()
	g.Dec()
	g.Add(-10)
	assert.Equal(t, 32.5, g.Value())
}

func TestHistogram(t *testing.T) {
	h := newHistogram([]float64{10, 1, 5}, nil)
	h.Observe(0.5)
	h.Observe(5)
	h.Observe(7)
	h.Observe(100)

	cumulative, sum, count := h.Snapshot()
	assert.Equal(t, []int64{1, 2, 3, 4}, cumulative)
	assert.Equal(t, 112.5, sum)
	assert.Equal(t, int64(4), count)
}

func TestCounterVec(t *testing.T) {
	v := NewCounterVec("x_total", "x", "lang")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.WithLabels("go").Inc()
		}()
	}
	wg.Wait()
	v.WithLabels("python").Inc()

	assert.Equal(t, int64(20), v.WithLabels("go").Value())
	assert.Equal(t, 2, v.Len())
	assert.Panics(t, func() { v.WithLabels() })
}

func TestRecordChunk(t *testing.T) {
	m := New()

	chunks := []chunk.Chunk{
		{Content: "package a\n", StartByte: 0, EndByte: 10},
		{Content: "func f() {}\n", StartByte: 10, EndByte: 22, Oversized: true},
	}
	m.RecordChunk("go", 2*time.Millisecond, chunks, nil)
	m.RecordChunk("cobol", time.Millisecond, nil, apperrors.UnsupportedLanguageError("cobol"))

	assert.Equal(t, int64(1), m.ChunkRequests.WithLabels("go").Value())
	assert.Equal(t, int64(2), m.ChunksProduced.WithLabels().Value())
	assert.Equal(t, int64(1), m.OversizedChunks.WithLabels().Value())
	assert.Equal(t, int64(1), m.ChunkErrors.WithLabels(apperrors.CodeUnsupportedLanguage).Value())
	assert.Equal(t, int64(2), m.ChunkSize.WithLabels().Count())
}

func TestRecordSinkWrite(t *testing.T) {
	m := New()
	m.RecordSinkWrite("kafka", 10, time.Millisecond, nil)
	m.RecordSinkWrite("kafka", 5, time.Millisecond, errors.New("broker down"))

	assert.Equal(t, int64(2), m.SinkWrites.WithLabels("kafka").Value())
	assert.Equal(t, int64(10), m.SinkRecords.WithLabels("kafka").Value())
	assert.Equal(t, int64(1), m.SinkErrors.WithLabels("kafka").Value())
}

func TestPrometheusFormat(t *testing.T) {
	m := New()
	m.RecordFile("chunked")
	m.RecordFile("chunked")
	m.RecordChunk("go", 3*time.Millisecond, []chunk.Chunk{{Content: "x", EndByte: 1}}, nil)

	out := m.PrometheusFormat()
	assert.Contains(t, out, "# TYPE rice_indexed_files_total counter\n")
	assert.Contains(t, out, `rice_indexed_files_total{status="chunked"} 2`+"\n")
	assert.Contains(t, out, `rice_chunk_duration_seconds_bucket{language="go",le="0.005"} 1`+"\n")
	assert.Contains(t, out, `rice_chunk_duration_seconds_bucket{language="go",le="+Inf"} 1`+"\n")
	assert.Contains(t, out, `rice_chunk_size_chars_bucket{le="64"} 1`+"\n")
	assert.Contains(t, out, "rice_chunks_produced_total 1\n")
	assert.Contains(t, out, "# TYPE rice_goroutines gauge\n")

	// Families without observations are omitted.
	assert.NotContains(t, out, "rice_sink_writes_total")
}

func TestEscapeLabel(t *testing.T) {
	assert.Equal(t, `a\"b\\c\nd`, escapeLabel("a\"b\\c\nd"))
}

func TestMiddleware(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(Middleware(m))
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/v1/items/1", "/v1/items/2", "/ok"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, int64(2), m.HTTPRequests.WithLabels("GET", "/v1/items/{id}", "418").Value())
	assert.Equal(t, int64(1), m.HTTPRequests.WithLabels("GET", "/ok", "200").Value())
	assert.Equal(t, float64(0), m.HTTPRequestsInFlight.Value())
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordFile("skipped")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.Contains(t, w.Body.String(), `rice_indexed_files_total{status="skipped"} 1`)
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.RecordFile("failed")

	path := filepath.Join(t.TempDir(), "textfile", "rice.prom")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `rice_indexed_files_total{status="failed"} 1`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
