package metrics

import (
	"io"
	"sort"
	"strconv"
	"strings"
)

// WritePrometheus writes every metric in the Prometheus text exposition
// format. Families with no observations are omitted.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	m.updateSystem()

	var sb strings.Builder

	writeCounters(&sb, m.ChunkRequests)
	writeCounters(&sb, m.ChunkErrors)
	writeHistograms(&sb, m.ChunkLatency)
	writeHistograms(&sb, m.ChunksPerDoc)
	writeHistograms(&sb, m.ChunkSize)
	writeCounters(&sb, m.ChunksProduced)
	writeCounters(&sb, m.OversizedChunks)

	writeCounters(&sb, m.IndexedFiles)

	writeCounters(&sb, m.SinkWrites)
	writeCounters(&sb, m.SinkRecords)
	writeCounters(&sb, m.SinkErrors)
	writeHistograms(&sb, m.SinkLatency)

	writeCounters(&sb, m.HTTPRequests)
	writeHistograms(&sb, m.HTTPDuration)
	writeGauges(&sb, m.HTTPRequestsInFlight)

	writeGauges(&sb, m.GoroutineCount)
	writeGauges(&sb, m.MemoryUsage)
	writeGauges(&sb, m.Uptime)

	_, err := io.WriteString(w, sb.String())
	return err
}

// PrometheusFormat returns the exposition text.
func (m *Metrics) PrometheusFormat() string {
	var sb strings.Builder
	_ = m.WritePrometheus(&sb)
	return sb.String()
}

func writeHeader(sb *strings.Builder, name, help, kind string) {
	sb.WriteString("# HELP " + name + " " + help + "\n")
	sb.WriteString("# TYPE " + name + " " + kind + "\n")
}

func writeCounters(sb *strings.Builder, v *CounterVec) {
	if v.Len() == 0 {
		return
	}
	writeHeader(sb, v.name, v.help, "counter")
	v.each(func(labels map[string]string, c *Counter) {
		writeSample(sb, v.name, labels, "", "", strconv.FormatInt(c.Value(), 10))
	})
}

func writeGauges(sb *strings.Builder, v *GaugeVec) {
	if v.Len() == 0 {
		return
	}
	writeHeader(sb, v.name, v.help, "gauge")
	v.each(func(labels map[string]string, g *Gauge) {
		writeSample(sb, v.name, labels, "", "", formatFloat(g.Value()))
	})
}

func writeHistograms(sb *strings.Builder, v *HistogramVec) {
	if v.Len() == 0 {
		return
	}
	writeHeader(sb, v.name, v.help, "histogram")
	v.each(func(labels map[string]string, h *Histogram) {
		cumulative, sum, count := h.Snapshot()
		for i, bound := range h.buckets {
			writeSample(sb, v.name+"_bucket", labels, "le", formatFloat(bound), strconv.FormatInt(cumulative[i], 10))
		}
		writeSample(sb, v.name+"_bucket", labels, "le", "+Inf", strconv.FormatInt(cumulative[len(cumulative)-1], 10))
		writeSample(sb, v.name+"_sum", labels, "", "", formatFloat(sum))
		writeSample(sb, v.name+"_count", labels, "", "", strconv.FormatInt(count, 10))
	})
}

// writeSample writes one line. extraKey, when set, is appended after the
// sorted labels.
func writeSample(sb *strings.Builder, name string, labels map[string]string, extraKey, extraValue, value string) {
	sb.WriteString(name)

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) > 0 || extraKey != "" {
		sb.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(k + `="` + escapeLabel(labels[k]) + `"`)
		}
		if extraKey != "" {
			if len(keys) > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(extraKey + `="` + extraValue + `"`)
		}
		sb.WriteString("}")
	}

	sb.WriteString(" " + value + "\n")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// escapeLabel escapes special characters in label values.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
