// Package metrics provides Prometheus-compatible metrics for the chunker.
package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter represents a monotonically increasing counter.
type Counter struct {
	value  atomic.Int64
	labels map[string]string
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Add adds delta to the counter. Negative deltas are ignored.
func (c *Counter) Add(delta int64) {
	if delta < 0 {
		return
	}
	c.value.Add(delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Gauge represents a value that can go up and down.
type Gauge struct {
	bits   atomic.Uint64
	labels map[string]string
}

// Set sets the gauge.
func (g *Gauge) Set(v float64) {
	g.bits.Store(math.Float64bits(v))
}

// Add adds delta to the gauge.
func (g *Gauge) Add(delta float64) {
	for {
		old := g.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if g.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() { g.Add(1) }

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() { g.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	return math.Float64frombits(g.bits.Load())
}

// Histogram counts observations into buckets.
type Histogram struct {
	mu      sync.Mutex
	buckets []float64 // upper bounds, ascending
	counts  []int64   // per bucket, last is +Inf; not cumulative
	sum     float64
	count   int64
	labels  map[string]string
}

func newHistogram(buckets []float64, labels map[string]string) *Histogram {
	b := append([]float64(nil), buckets...)
	sort.Float64s(b)
	return &Histogram{
		buckets: b,
		counts:  make([]int64, len(b)+1),
		labels:  labels,
	}
}

// Observe adds a single observation.
func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.buckets, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[i]++
	h.sum += v
	h.count++
}

// Snapshot returns the cumulative bucket counts, sum and count.
func (h *Histogram) Snapshot() (cumulative []int64, sum float64, count int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cumulative = make([]int64, len(h.counts))
	var running int64
	for i, c := range h.counts {
		running += c
		cumulative[i] = running
	}
	return cumulative, h.sum, h.count
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// family is a named metric with one child per label combination.
type family[T any] struct {
	name       string
	help       string
	labelNames []string
	create     func(labels map[string]string) *T

	mu       sync.RWMutex
	children map[string]*T
	labels   map[string]map[string]string
}

func newFamily[T any](name, help string, labelNames []string, create func(map[string]string) *T) *family[T] {
	return &family[T]{
		name:       name,
		help:       help,
		labelNames: labelNames,
		create:     create,
		children:   make(map[string]*T),
		labels:     make(map[string]map[string]string),
	}
}

// WithLabels returns the child for the given label values, creating it on
// first use.
func (f *family[T]) WithLabels(values ...string) *T {
	if len(values) != len(f.labelNames) {
		panic(fmt.Sprintf("metric %s: expected %d label values, got %d", f.name, len(f.labelNames), len(values)))
	}
	key := strings.Join(values, "\xff")

	f.mu.RLock()
	child, ok := f.children[key]
	f.mu.RUnlock()
	if ok {
		return child
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if child, ok := f.children[key]; ok {
		return child
	}

	labels := make(map[string]string, len(values))
	for i, name := range f.labelNames {
		labels[name] = values[i]
	}
	child = f.create(labels)
	f.children[key] = child
	f.labels[key] = labels
	return child
}

// each calls fn for every child in label order.
func (f *family[T]) each(fn func(labels map[string]string, child *T)) {
	f.mu.RLock()
	keys := make([]string, 0, len(f.children))
	for k := range f.children {
		keys = append(keys, k)
	}
	f.mu.RUnlock()
	sort.Strings(keys)

	for _, k := range keys {
		f.mu.RLock()
		child, labels := f.children[k], f.labels[k]
		f.mu.RUnlock()
		fn(labels, child)
	}
}

// Len returns the number of children.
func (f *family[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.children)
}

// CounterVec is a counter with labels.
type CounterVec struct {
	*family[Counter]
}

// NewCounterVec creates a counter vector.
func NewCounterVec(name, help string, labelNames ...string) *CounterVec {
	return &CounterVec{newFamily(name, help, labelNames, func(l map[string]string) *Counter {
		return &Counter{labels: l}
	})}
}

// HistogramVec is a histogram with labels.
type HistogramVec struct {
	*family[Histogram]
	buckets []float64
}

// NewHistogramVec creates a histogram vector.
func NewHistogramVec(name, help string, buckets []float64, labelNames ...string) *HistogramVec {
	return &HistogramVec{
		family: newFamily(name, help, labelNames, func(l map[string]string) *Histogram {
			return newHistogram(buckets, l)
		}),
		buckets: buckets,
	}
}

// Inc increments an unlabelled counter.
func (v *CounterVec) Inc() { v.WithLabels().Inc() }

// Add adds to an unlabelled counter.
func (v *CounterVec) Add(delta int64) { v.WithLabels().Add(delta) }

// Observe records into an unlabelled histogram.
func (v *HistogramVec) Observe(x float64) { v.WithLabels().Observe(x) }

// GaugeVec is a gauge with labels.
type GaugeVec struct {
	*family[Gauge]
}

// NewGaugeVec creates a gauge vector.
func NewGaugeVec(name, help string, labelNames ...string) *GaugeVec {
	return &GaugeVec{newFamily(name, help, labelNames, func(l map[string]string) *Gauge {
		return &Gauge{labels: l}
	})}
}

// Set sets an unlabelled gauge.
func (v *GaugeVec) Set(x float64) { v.WithLabels().Set(x) }

// Value reads an unlabelled gauge.
func (v *GaugeVec) Value() float64 { return v.WithLabels().Value() }
