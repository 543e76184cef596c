package middleware

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// Metrics collects HTTP request metrics in a Prometheus-compatible format.
type Metrics struct {
	requestsTotal   sync.Map // key: "method:status" -> *int64
	requestDuration sync.Map // key: "method:route" -> *durationBuckets
	activeRequests  int64
	uploadedBytes   int64
	uploadsTotal    int64
}

type durationBuckets struct {
	mu    sync.Mutex
	sum   float64
	count int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			atomic.AddInt64(&m.activeRequests, 1)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			atomic.AddInt64(&m.activeRequests, -1)
			duration := time.Since(start).Seconds()

			// Count requests by method+status
			key := fmt.Sprintf("%s:%d", r.Method, rw.status)
			counter, _ := m.requestsTotal.LoadOrStore(key, new(int64))
			atomic.AddInt64(counter.(*int64), 1)

			// Track duration by method+route pattern
			pathKey := fmt.Sprintf("%s:%s", r.Method, routePattern(r))
			buckets, _ := m.requestDuration.LoadOrStore(pathKey, &durationBuckets{})
			db := buckets.(*durationBuckets)
			db.mu.Lock()
			db.sum += duration
			db.count++
			db.mu.Unlock()
		})
	}
}

// Handler serves the /metrics endpoint in Prometheus text exposition format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		// Active requests gauge
		fmt.Fprintf(w, "# HELP filedrop_http_active_requests Number of active HTTP requests.\n")
		fmt.Fprintf(w, "# TYPE filedrop_http_active_requests gauge\n")
		fmt.Fprintf(w, "filedrop_http_active_requests %d\n\n", atomic.LoadInt64(&m.activeRequests))

		// Request totals
		fmt.Fprintf(w, "# HELP filedrop_http_requests_total Total number of HTTP requests.\n")
		fmt.Fprintf(w, "# TYPE filedrop_http_requests_total counter\n")

		var totalKeys []string
		m.requestsTotal.Range(func(key, _ any) bool {
			totalKeys = append(totalKeys, key.(string))
			return true
		})
		sort.Strings(totalKeys)
		for _, key := range totalKeys {
			val, _ := m.requestsTotal.Load(key)
			method, status := splitMetricsKey(key)
			fmt.Fprintf(w, "filedrop_http_requests_total{method=%q,status=%q} %d\n",
				method, status, atomic.LoadInt64(val.(*int64)))
		}

		// Request duration
		fmt.Fprintf(w, "\n# HELP filedrop_http_request_duration_seconds HTTP request duration in seconds.\n")
		fmt.Fprintf(w, "# TYPE filedrop_http_request_duration_seconds summary\n")

		var durationKeys []string
		m.requestDuration.Range(func(key, _ any) bool {
			durationKeys = append(durationKeys, key.(string))
			return true
		})
		sort.Strings(durationKeys)
		for _, key := range durationKeys {
			val, _ := m.requestDuration.Load(key)
			db := val.(*durationBuckets)
			db.mu.Lock()
			sum := db.sum
			count := db.count
			db.mu.Unlock()
			method, route := splitMetricsKey(key)
			fmt.Fprintf(w, "filedrop_http_request_duration_seconds_sum{method=%q,route=%q} %.6f\n", method, route, sum)
			fmt.Fprintf(w, "filedrop_http_request_duration_seconds_count{method=%q,route=%q} %d\n", method, route, count)
		}

		// Uploads
		fmt.Fprintf(w, "\n# HELP filedrop_uploads_total Total number of stored uploads.\n")
		fmt.Fprintf(w, "# TYPE filedrop_uploads_total counter\n")
		fmt.Fprintf(w, "filedrop_uploads_total %d\n", atomic.LoadInt64(&m.uploadsTotal))
		fmt.Fprintf(w, "\n# HELP filedrop_uploaded_bytes_total Total number of bytes stored.\n")
		fmt.Fprintf(w, "# TYPE filedrop_uploaded_bytes_total counter\n")
		fmt.Fprintf(w, "filedrop_uploaded_bytes_total %d\n", atomic.LoadInt64(&m.uploadedBytes))
	}
}

// RecordUpload counts one stored upload of size bytes.
func (m *Metrics) RecordUpload(size int64) {
	atomic.AddInt64(&m.uploadsTotal, 1)
	atomic.AddInt64(&m.uploadedBytes, size)
}

func splitMetricsKey(key string) (string, string) {
	method, rest, _ := strings.Cut(key, ":")
	return method, rest
}

// routePattern returns the matched chi route, so /files/{filename} is one series.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
