package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpDBWrite, 10*time.Millisecond, nil)
	c.RecordTiming(OpDBWrite, 30*time.Millisecond, errors.New("boom"))

	snap := c.Snapshot()
	require.NotNil(t, snap.DBWrite)
	assert.Equal(t, int64(2), snap.DBWrite.Count)
	assert.Equal(t, int64(1), snap.DBWrite.Errors)
	assert.Equal(t, int64(40), snap.DBWrite.TotalTimeMs)
	assert.Equal(t, int64(10), snap.DBWrite.MinTimeMs)
	assert.Equal(t, int64(30), snap.DBWrite.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.DBWrite.AvgTimeMs, 0.001)
	assert.Nil(t, snap.DBQuery, "unused operations are omitted")
}

func TestCollectorRecordLLMUsage(t *testing.T) {
	c := NewCollector()

	c.RecordLLMUsage(OpLLMGenerate, time.Second, 120, 300, nil)
	c.RecordLLMUsage(OpLLMGenerate, time.Second, 80, 200, nil)

	snap := c.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	require.NotNil(t, snap.LLMGenerate.TotalInputTokens)
	assert.Equal(t, int64(200), *snap.LLMGenerate.TotalInputTokens)
	assert.Equal(t, int64(500), *snap.LLMGenerate.TotalOutputTokens)
}

func TestCollectorEvents(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc(EventCacheHit)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(50), snap.Events[EventCacheHit])

	// Snapshot copies the map.
	snap.Events[EventCacheHit] = 0
	assert.Equal(t, int64(50), c.Snapshot().Events[EventCacheHit])
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordTiming(OpDBQuery, time.Millisecond, nil)
		c.RecordLLMUsage(OpLLMGenerate, time.Millisecond, 1, 1, nil)
		c.Inc(EventParseFailure)
		_ = c.Snapshot()
	})
}
