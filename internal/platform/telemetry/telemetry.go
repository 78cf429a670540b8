// Package telemetry keeps in-process metrics for the converter service and
// exposes them in the Prometheus text format. HTTP request latency, active
// requests, conversion outcomes and condition-tree size are recorded.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sqlconv/sqlconv/internal/platform/apierror"
)

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram stores non-cumulative bucket counts; cumulative counts are
// computed at export.
type histogram struct {
	boundaries   []float64
	bucketCounts []int64
	count        int64
	sum          uint64 // math.Float64bits
	mu           sync.Mutex
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{
		boundaries:   boundaries,
		bucketCounts: make([]int64, len(boundaries)),
	}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	atomicAddFloat64(&h.sum, v)

	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.bucketCounts[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulativeBuckets() []int64 {
	h.mu.Lock()
	raw := make([]int64, len(h.bucketCounts))
	copy(raw, h.bucketCounts)
	h.mu.Unlock()

	var running int64
	for i, c := range raw {
		running += c
		raw[i] = running
	}
	return raw
}

func atomicAddFloat64(addr *uint64, delta float64) {
	for {
		old := atomic.LoadUint64(addr)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(addr, old, next) {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Labeled stores
// ---------------------------------------------------------------------------

// histogramVec holds one histogram per label key.
type histogramVec struct {
	boundaries []float64
	mu         sync.RWMutex
	items      map[string]*histogram
}

func newHistogramVec(boundaries []float64) *histogramVec {
	return &histogramVec{boundaries: boundaries, items: make(map[string]*histogram)}
}

func (v *histogramVec) with(key string) *histogram {
	v.mu.RLock()
	h, ok := v.items[key]
	v.mu.RUnlock()
	if ok {
		return h
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if h, ok = v.items[key]; !ok {
		h = newHistogram(v.boundaries)
		v.items[key] = h
	}
	return h
}

func (v *histogramVec) get(key string) *histogram {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items[key]
}

func (v *histogramVec) keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.items))
	for k := range v.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// counterVec holds one counter per label key.
type counterVec struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newCounterVec() *counterVec {
	return &counterVec{items: make(map[string]*int64)}
}

func (v *counterVec) inc(key string) {
	v.mu.RLock()
	p, ok := v.items[key]
	v.mu.RUnlock()
	if !ok {
		v.mu.Lock()
		if p, ok = v.items[key]; !ok {
			p = new(int64)
			v.items[key] = p
		}
		v.mu.Unlock()
	}
	atomic.AddInt64(p, 1)
}

func (v *counterVec) get(key string) int64 {
	v.mu.RLock()
	p, ok := v.items[key]
	v.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

func (v *counterVec) snapshot() map[string]int64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	cp := make(map[string]int64, len(v.items))
	for k, p := range v.items {
		cp[k] = atomic.LoadInt64(p)
	}
	return cp
}

// labelsKey joins label values into a store key.
func labelsKey(values ...string) string {
	return strings.Join(values, "|")
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// durationBuckets are request latency boundaries in seconds.
var durationBuckets = []float64{
	0.001, 0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.0, 2.5,
}

// leafBuckets are boundaries for the number of conditions in a tree.
var leafBuckets = []float64{1, 2, 5, 10, 25, 50, 100}

// PoolStatsFunc reports total, idle and in-use connections of the history
// store at scrape time.
type PoolStatsFunc func() (total, idle, inUse int32)

// Provider owns every metric the service exports.
type Provider struct {
	requestDuration *histogramVec
	activeRequests  int64

	conversions *counterVec
	leafCount   *histogram

	poolStats PoolStatsFunc
}

func NewProvider() *Provider {
	return &Provider{
		requestDuration: newHistogramVec(durationBuckets),
		conversions:     newCounterVec(),
		leafCount:       newHistogram(leafBuckets),
	}
}

// SetPoolStats registers the database pool as a gauge source.
func (p *Provider) SetPoolStats(fn PoolStatsFunc) {
	p.poolStats = fn
}

// ObserveConversion counts one conversion. An empty code means success, in
// which case leaves is added to the tree size histogram.
func (p *Provider) ObserveConversion(code string, leaves int) {
	outcome := "succeeded"
	if code != "" {
		outcome = "failed"
	} else {
		p.leafCount.Observe(float64(leaves))
	}
	p.conversions.inc(labelsKey(outcome, code))
}

// ConversionCount returns how many conversions ended with code ("" for
// success).
func (p *Provider) ConversionCount(code string) int64 {
	outcome := "succeeded"
	if code != "" {
		outcome = "failed"
	}
	return p.conversions.get(labelsKey(outcome, code))
}

// ActiveRequests returns the number of requests currently in flight.
func (p *Provider) ActiveRequests() int64 {
	return atomic.LoadInt64(&p.activeRequests)
}

// Middleware records latency per method, route and status code. Skipped
// paths are not measured.
func (p *Provider) Middleware(skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipped[c.Request().URL.Path] {
				return next(c)
			}

			atomic.AddInt64(&p.activeRequests, 1)
			defer atomic.AddInt64(&p.activeRequests, -1)

			start := time.Now()
			err := next(c)
			duration := time.Since(start).Seconds()

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				// The error handler has not written the response yet.
				status, _ = apierror.Translate(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.requestDuration.with(labelsKey(c.Request().Method, route, strconv.Itoa(status))).Observe(duration)
			return err
		}
	}
}

// Handler serves all metrics in the Prometheus text exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP http_server_request_duration_seconds Duration of HTTP requests in seconds.\n")
		b.WriteString("# TYPE http_server_request_duration_seconds histogram\n")
		for _, key := range p.requestDuration.keys() {
			parts := strings.SplitN(key, "|", 3)
			labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
			writeHistogram(&b, "http_server_request_duration_seconds", labels, p.requestDuration.get(key))
		}
		b.WriteByte('\n')

		b.WriteString("# HELP http_server_active_requests Number of active HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", p.ActiveRequests())

		b.WriteString("# HELP sqlconv_conversions_total Conversions by outcome and error code.\n")
		b.WriteString("# TYPE sqlconv_conversions_total counter\n")
		counts := p.conversions.snapshot()
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			outcome, code, _ := strings.Cut(key, "|")
			fmt.Fprintf(&b, "sqlconv_conversions_total{outcome=%q,code=%q} %d\n", outcome, code, counts[key])
		}
		b.WriteByte('\n')

		b.WriteString("# HELP sqlconv_condition_leaves Number of conditions in converted trees.\n")
		b.WriteString("# TYPE sqlconv_condition_leaves histogram\n")
		writeHistogram(&b, "sqlconv_condition_leaves", "", p.leafCount)
		b.WriteByte('\n')

		if p.poolStats != nil {
			total, idle, inUse := p.poolStats()
			for _, g := range []struct {
				name, help string
				val        int32
			}{
				{"db_pool_total_connections", "Open connections in the history store pool.", total},
				{"db_pool_idle_connections", "Idle connections in the history store pool.", idle},
				{"db_pool_in_use_connections", "Connections currently in use.", inUse},
			} {
				fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", g.name, g.help, g.name, g.name, g.val)
			}
		}

		return c.String(http.StatusOK, b.String())
	}
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	prefix, suffix := "", ""
	if labels != "" {
		prefix = labels + ","
		suffix = "{" + labels + "}"
	}

	cum := h.cumulativeBuckets()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%sle=\"%g\"} %d\n", name, prefix, boundary, cum[i])
	}
	total := h.Count()
	fmt.Fprintf(b, "%s_bucket{%sle=\"+Inf\"} %d\n", name, prefix, total)
	fmt.Fprintf(b, "%s_sum%s %g\n", name, suffix, h.Sum())
	fmt.Fprintf(b, "%s_count%s %d\n", name, suffix, total)
}
