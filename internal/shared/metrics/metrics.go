// Package metrics keeps process-local counters for the invoice pipeline and
// renders them in the Prometheus text exposition format.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	invoicesIngested = newCounter("invoices_ingested_total", "Invoices extracted and stored", "")
	extractionFailed = newCounter("extraction_failed_total", "Extractions that errored or returned an error marker", "")
	qualityRejected  = newCounter("quality_rejected_total", "Uploads rejected by the image quality check", "reason")
	statusUpdates    = newCounter("status_updates_total", "Review status changes", "status")

	extractionDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000})

	registry = []*counter{invoicesIngested, extractionFailed, qualityRejected, statusUpdates}
)

func IncInvoicesIngested() { invoicesIngested.inc("") }

func IncExtractionFailed() { extractionFailed.inc("") }

// IncQualityRejected counts a rejected upload under its failure reason.
func IncQualityRejected(reason string) { qualityRejected.inc(reason) }

// IncStatusUpdates counts a status change under the target status.
func IncStatusUpdates(status string) { statusUpdates.inc(status) }

// ObserveExtractionDurationMs records one extraction call. Negative values
// count as zero.
func ObserveExtractionDurationMs(ms float64) {
	if ms < 0 {
		ms = 0
	}
	extractionDuration.Observe(ms)
}

// Handler serves Render at the metrics endpoint.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4", []byte(Render()))
	}
}

// Render writes every registered series.
func Render() string {
	var buf bytes.Buffer
	for _, c := range registry {
		c.write(&buf)
	}
	extractionDuration.write(&buf, "extraction_duration_ms", "Extraction call duration in milliseconds")
	return buf.String()
}

// counter is a monotonically increasing series with at most one label.
type counter struct {
	name  string
	help  string
	label string

	mu     sync.Mutex
	values map[string]uint64
}

func newCounter(name, help, label string) *counter {
	return &counter{name: name, help: help, label: label, values: map[string]uint64{}}
}

func (c *counter) inc(labelValue string) {
	if c.label == "" {
		labelValue = ""
	}
	c.mu.Lock()
	c.values[labelValue]++
	c.mu.Unlock()
}

func (c *counter) snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *counter) write(buf *bytes.Buffer) {
	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s counter\n", c.name, c.help, c.name)
	values := c.snapshot()
	if c.label == "" {
		fmt.Fprintf(buf, "%s %d\n", c.name, values[""])
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", c.name, c.label, k, values[k])
	}
}

// histogram stores per-bucket counts; write accumulates them.
type histogram struct {
	mu     sync.Mutex
	bounds []float64
	counts []uint64
	sum    float64
	total  uint64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{bounds: bounds, counts: make([]uint64, len(bounds))}
}

func (h *histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total++
	h.sum += v
	if i := sort.SearchFloat64s(h.bounds, v); i < len(h.bounds) {
		h.counts[i]++
	}
}

func (h *histogram) write(buf *bytes.Buffer, name, help string) {
	h.mu.Lock()
	counts := append([]uint64(nil), h.counts...)
	sum, total := h.sum, h.total
	h.mu.Unlock()

	fmt.Fprintf(buf, "# HELP %s %s\n# TYPE %s histogram\n", name, help, name)
	var running uint64
	for i, bound := range h.bounds {
		running += counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=%q} %d\n", name, strconv.FormatFloat(bound, 'f', -1, 64), running)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, total)
	fmt.Fprintf(buf, "%s_sum %s\n", name, strconv.FormatFloat(sum, 'f', -1, 64))
	fmt.Fprintf(buf, "%s_count %d\n", name, total)
}
