package goalloop

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// StuckDetector inspects a sliding window of recent action signatures for
// unproductive repetition: a full window of identical (or near-duplicate)
// signatures whose observations produced no new information.
//
// Near-duplicate matching compares the canonical signature tokens with a
// difflib sequence ratio against the configured similarity threshold. The
// default threshold of 1.0 requires identical signatures.
//
// The detector is per-session state; it is not safe for concurrent use.
type StuckDetector struct {
	window     int
	similarity float64
	entries    []stuckEntry
}

type stuckEntry struct {
	sig        Signature
	productive bool
}

// NewStuckDetector creates a detector with the given window size and
// similarity threshold. Values outside their valid ranges fall back to the
// documented defaults (window 3, similarity 1.0).
func NewStuckDetector(window int, similarity float64) *StuckDetector {
	if window < 2 {
		window = DefaultConfig().StuckWindow
	}
	if similarity <= 0 || similarity > 1 {
		similarity = DefaultConfig().StuckSimilarity
	}
	return &StuckDetector{window: window, similarity: similarity}
}

// Observe records one action signature and whether its observation was
// productive (a subtask newly marked done, or a reflection insight not seen
// before). A signature that is not a near-duplicate of the window ends the
// current stuck episode as the window slides past it.
func (d *StuckDetector) Observe(sig Signature, productive bool) {
	d.entries = append(d.entries, stuckEntry{sig: sig, productive: productive})
	if len(d.entries) > d.window {
		d.entries = d.entries[len(d.entries)-d.window:]
	}
}

// IsStuck reports whether the window is full of mutually near-duplicate
// signatures with zero observation delta.
func (d *StuckDetector) IsStuck() bool {
	if len(d.entries) < d.window {
		return false
	}
	first := d.entries[0]
	for _, entry := range d.entries {
		if entry.productive {
			return false
		}
		if !d.similar(first.sig, entry.sig) {
			return false
		}
	}
	return true
}

// Reset clears the window.
func (d *StuckDetector) Reset() {
	d.entries = d.entries[:0]
}

func (d *StuckDetector) similar(a, b Signature) bool {
	if a.Sum == b.Sum {
		return true
	}
	if d.similarity >= 1 {
		return false
	}
	matcher := difflib.NewMatcher(strings.Fields(a.Key), strings.Fields(b.Key))
	return matcher.Ratio() >= d.similarity
}
