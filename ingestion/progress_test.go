package ingestion

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildProgress_Stages(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBuildProgress(&buf, 100, 4, 25)
	assert.Equal(t, "encoding", progress.stage.String())

	progress.BatchEncoded(25)
	progress.BatchEncoded(25)
	assert.Contains(t, buf.String(), "Encoded: 50/100 records, batch 2/4")

	progress.BatchEncoded(25)
	progress.BatchEncoded(25)
	progress.EncodingDone()
	assert.Equal(t, "persisting", progress.stage.String())
	assert.Contains(t, buf.String(), "Encoded: 100/100 records, batch 4/4")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	progress.Persisting(384)
	progress.Persisted()
	assert.Equal(t, "done", progress.stage.String())
	assert.Contains(t, buf.String(), "Saving: 100 records (dimension 384)... done in ")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	assert.Greater(t, progress.Elapsed(), time.Duration(0))
}

func TestBuildProgress_Interval(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBuildProgress(&buf, 1000, 10, 250)

	progress.BatchEncoded(100)
	progress.BatchEncoded(100)
	assert.Empty(t, buf.String(), "below interval should not print")

	progress.BatchEncoded(100)
	assert.Contains(t, buf.String(), "300/1000")
	assert.Equal(t, 1, strings.Count(buf.String(), "Encoded:"))
}

func TestBuildProgress_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBuildProgress(&buf, 10, 1, 1)

	progress.BatchEncoded(25)
	progress.BatchEncoded(25)
	assert.Contains(t, buf.String(), "10/10 records, batch 1/1")
	assert.NotContains(t, buf.String(), "25/10")
}

func TestBuildProgress_OutOfOrderCalls(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBuildProgress(&buf, 10, 1, 1)

	progress.Persisting(8)
	progress.Persisted()
	assert.Empty(t, buf.String(), "nothing to persist before encoding is done")

	progress.EncodingDone()
	progress.BatchEncoded(10)
	assert.Equal(t, 1, strings.Count(buf.String(), "Encoded:"), "encoding is closed")
}

func TestBuildProgress_Nil(t *testing.T) {
	var progress *BuildProgress

	progress.BatchEncoded(5)
	progress.EncodingDone()
	progress.Persisting(8)
	progress.Persisted()
	assert.Equal(t, time.Duration(0), progress.Elapsed())
}

func TestBuildProgress_ZeroInterval(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBuildProgress(&buf, 3, 3, 0)

	progress.BatchEncoded(1)
	assert.Contains(t, buf.String(), "1/3 records, batch 1/3")
}

func TestBuildProgress_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	progress := NewBuildProgress(&buf, 100, 10, 10)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			progress.BatchEncoded(10)
		}()
	}
	wg.Wait()
	progress.EncodingDone()

	assert.Contains(t, buf.String(), "100/100 records, batch 10/10")
}
