package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// expo writes Prometheus text exposition and keeps the first write error.
type expo struct {
	w   io.Writer
	err error
}

func (e *expo) printf(format string, args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}

func (e *expo) header(name, help, kind string) {
	e.printf("# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

// series holds one float per rendered label set.
type series struct {
	mu     sync.Mutex
	values map[string]float64
}

func (s *series) add(key string, v float64) {
	s.mu.Lock()
	if s.values == nil {
		s.values = map[string]float64{}
	}
	s.values[key] += v
	s.mu.Unlock()
}

func (s *series) snapshot() ([]string, map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		cp[k] = v
	}
	return sortedKeys(cp), cp
}

// CounterVec is a monotonically increasing counter partitioned by labels.
type CounterVec struct {
	name, help string
	labels     []string
	s          series
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labels: labels}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if c == nil || v < 0 {
		return
	}
	c.s.add(renderLabels(c.labels, values), v)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	e := &expo{w: w}
	e.header(c.name, c.help, "counter")
	keys, vals := c.s.snapshot()
	for _, k := range keys {
		e.printf("%s%s %f\n", c.name, k, vals[k])
	}
	return e.err
}

// Counter is a CounterVec without labels.
type Counter struct{ vec *CounterVec }

func NewCounter(name, help string) *Counter {
	return &Counter{vec: NewCounterVec(name, help, nil)}
}

func (c *Counter) Inc() {
	if c != nil {
		c.vec.Inc()
	}
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	e := &expo{w: w}
	e.header(c.vec.name, c.vec.help, "counter")
	_, vals := c.vec.s.snapshot()
	e.printf("%s %f\n", c.vec.name, vals[""])
	return e.err
}

// Gauge is a single value that moves both ways.
type Gauge struct {
	name, help string
	s          series
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Inc() {
	if g != nil {
		g.s.add("", 1)
	}
}

func (g *Gauge) Dec() {
	if g != nil {
		g.s.add("", -1)
	}
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	e := &expo{w: w}
	e.header(g.name, g.help, "gauge")
	_, vals := g.s.snapshot()
	e.printf("%s %f\n", g.name, vals[""])
	return e.err
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

// HistogramVec counts observations into cumulative upper-bound buckets.
type HistogramVec struct {
	name, help string
	labels     []string
	bounds     []float64

	mu   sync.Mutex
	data map[string]*histData
}

type histData struct {
	counts []uint64 // per bound, plus +Inf last
	sum    float64
}

func NewHistogramVec(name, help string, labels []string, bounds []float64) *HistogramVec {
	if len(bounds) == 0 {
		bounds = defaultBuckets
	}
	return &HistogramVec{name: name, help: help, labels: labels, bounds: bounds, data: map[string]*histData{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	key := renderLabels(h.labels, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.data[key]
	if d == nil {
		d = &histData{counts: make([]uint64, len(h.bounds)+1)}
		h.data[key] = d
	}
	d.sum += v
	for i, b := range h.bounds {
		if v <= b {
			d.counts[i]++
		}
	}
	d.counts[len(h.bounds)]++
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	e := &expo{w: w}
	e.header(h.name, h.help, "histogram")
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.data))
	for k := range h.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d := h.data[k]
		for i, b := range h.bounds {
			e.printf("%s_bucket%s %d\n", h.name, appendLabel(k, "le", fmt.Sprintf("%g", b)), d.counts[i])
		}
		total := d.counts[len(h.bounds)]
		e.printf("%s_bucket%s %d\n", h.name, appendLabel(k, "le", "+Inf"), total)
		e.printf("%s_sum%s %f\n", h.name, k, d.sum)
		e.printf("%s_count%s %d\n", h.name, k, total)
	}
	return e.err
}

// renderLabels formats {a="x",b="y"}; missing values become "unknown".
func renderLabels(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, n := range names {
		v := "unknown"
		if i < len(values) {
			v = values[i]
		}
		pairs[i] = fmt.Sprintf("%s=%q", n, v)
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func appendLabel(rendered, name, value string) string {
	pair := fmt.Sprintf("%s=%q", name, value)
	if rendered == "" {
		return "{" + pair + "}"
	}
	return strings.TrimSuffix(rendered, "}") + "," + pair + "}"
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isServerErrorStatus(status string) bool {
	status = strings.TrimSpace(status)
	return len(status) == 3 && status[0] == '5'
}
