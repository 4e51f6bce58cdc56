// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	Errors    int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Token metrics (only for LLM operations)
	TotalInputTokens  int64
	TotalOutputTokens int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	Errors      int64   `json:"errors"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`

	// Token stats (nil if not applicable)
	TotalInputTokens  *int64 `json:"totalInputTokens,omitempty"`
	TotalOutputTokens *int64 `json:"totalOutputTokens,omitempty"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	LLMGenerate   *OperationSnapshot `json:"llmGenerate,omitempty"`
	Normalize     *OperationSnapshot `json:"normalize,omitempty"`
	DBWrite       *OperationSnapshot `json:"dbWrite,omitempty"`
	DBQuery       *OperationSnapshot `json:"dbQuery,omitempty"`
	Events        map[string]int64   `json:"events"`
}

// Operation names for the collector.
const (
	OpLLMGenerate = "llm_generate"
	OpNormalize   = "normalize"
	OpDBWrite     = "db_write"
	OpDBQuery     = "db_query"
)

// Event names counted by the collector.
const (
	EventRecommendation      = "recommendation_created"
	EventHistoryWriteFailed  = "history_write_failed"
	EventParseFailure        = "parse_failure"
	EventUpstreamFailure     = "upstream_failure"
	EventCacheHit            = "cache_hit"
	EventCacheMiss           = "cache_miss"
	EventCacheError          = "cache_error"
	EventBreakerStateChanged = "breaker_state_changed"
)

// Collector aggregates in-memory runtime statistics and mirrors them to Prometheus.
// All methods are thread-safe and safe to call on a nil receiver.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	events    map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		events:    make(map[string]int64),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

func (m *OperationMetrics) observe(duration time.Duration, err error) {
	m.Count++
	m.TotalTime += duration
	if err != nil {
		m.Errors++
	}
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordTiming records timing and outcome for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.getOrCreate(op).observe(duration, err)
	c.mu.Unlock()

	OperationDuration.WithLabelValues(op, outcome(err)).Observe(duration.Seconds())
}

// RecordLLMUsage records timing and token usage for an LLM operation.
func (c *Collector) RecordLLMUsage(op string, duration time.Duration, inputTokens, outputTokens int64, err error) {
	if c == nil {
		return
	}
	c.mu.Lock()
	m := c.getOrCreate(op)
	m.observe(duration, err)
	m.TotalInputTokens += inputTokens
	m.TotalOutputTokens += outputTokens
	c.mu.Unlock()

	OperationDuration.WithLabelValues(op, outcome(err)).Observe(duration.Seconds())
	if inputTokens > 0 {
		LLMTokens.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		LLMTokens.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// Inc increments a named event counter.
func (c *Collector) Inc(event string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.events[event]++
	c.mu.Unlock()

	Events.WithLabelValues(event).Inc()
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeTokens bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		Errors:      m.Errors,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeTokens && (m.TotalInputTokens > 0 || m.TotalOutputTokens > 0) {
		totalIn := m.TotalInputTokens
		totalOut := m.TotalOutputTokens
		snap.TotalInputTokens = &totalIn
		snap.TotalOutputTokens = &totalOut
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Events: map[string]int64{}}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	events := make(map[string]int64, len(c.events))
	for k, v := range c.events {
		events[k] = v
	}

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		LLMGenerate:   snapshotOp(c.ops[OpLLMGenerate], true),
		Normalize:     snapshotOp(c.ops[OpNormalize], false),
		DBWrite:       snapshotOp(c.ops[OpDBWrite], false),
		DBQuery:       snapshotOp(c.ops[OpDBQuery], false),
		Events:        events,
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
