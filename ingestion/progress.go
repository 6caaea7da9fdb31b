package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// buildStage is the phase a build is in.
type buildStage int

const (
	stageEncoding buildStage = iota
	stagePersisting
	stageDone
)

func (s buildStage) String() string {
	switch s {
	case stageEncoding:
		return "encoding"
	case stagePersisting:
		return "persisting"
	default:
		return "done"
	}
}

// BuildProgress reports a build to a terminal. Encoding is reported per
// batch as a single rewritten line; persisting the finished artifact gets
// its own line with the save time.
//
// A nil *BuildProgress is valid and reports nothing.
type BuildProgress struct {
	writer         io.Writer
	records        int
	batches        int
	reportInterval int

	encoded      int
	batchesDone  int
	lastReported int
	stage        buildStage
	startTime    time.Time
	saveStart    time.Time
	mu           sync.Mutex
}

// NewBuildProgress creates a report for a build of records split into
// batches. The encoding line is rewritten every reportInterval records;
// values below 1 mean every batch.
func NewBuildProgress(writer io.Writer, records, batches, reportInterval int) *BuildProgress {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &BuildProgress{
		writer:         writer,
		records:        records,
		batches:        batches,
		reportInterval: reportInterval,
		startTime:      time.Now(),
	}
}

// BatchEncoded records that a batch of n records finished encoding. Batches
// finish out of order, so only the counts are tracked.
func (p *BuildProgress) BatchEncoded(n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage != stageEncoding {
		return
	}
	p.encoded = min(p.encoded+n, p.records)
	p.batchesDone = min(p.batchesDone+1, p.batches)

	if p.encoded-p.lastReported >= p.reportInterval {
		p.reportEncoding()
		p.lastReported = p.encoded
	}
}

// EncodingDone prints the final encoding line and moves to persisting.
func (p *BuildProgress) EncodingDone() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage != stageEncoding {
		return
	}
	p.reportEncoding()
	fmt.Fprintln(p.writer)
	p.stage = stagePersisting
}

// Persisting announces the save of the assembled artifact.
func (p *BuildProgress) Persisting(dim int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage != stagePersisting {
		return
	}
	p.saveStart = time.Now()
	fmt.Fprintf(p.writer, "Saving: %d records (dimension %d)...", p.encoded, dim)
}

// Persisted completes the save line.
func (p *BuildProgress) Persisted() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stage != stagePersisting {
		return
	}
	fmt.Fprintf(p.writer, " done in %s\n", time.Since(p.saveStart).Round(time.Millisecond))
	p.stage = stageDone
}

// Elapsed returns the time since the build started.
func (p *BuildProgress) Elapsed() time.Duration {
	if p == nil {
		return 0
	}
	return time.Since(p.startTime)
}

// reportEncoding must be called with the lock held.
func (p *BuildProgress) reportEncoding() {
	rate := 0.0
	if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 {
		rate = float64(p.encoded) / elapsed
	}
	fmt.Fprintf(p.writer, "\rEncoded: %d/%d records, batch %d/%d (%.1f records/s)",
		p.encoded, p.records, p.batchesDone, p.batches, rate)
}
