// Package detect finds recurring workflow sequences and iterative loops in a
// session's tool chain and emits them as pending observations.
package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/session-insight/internal/model"
	"github.com/rcliao/session-insight/internal/session"
)

// Window lengths scanned for repeating sequences, longest first so longer
// patterns get to subsume the shorter ones they imply.
var windowLengths = []int{5, 4, 3}

// Cycle periods scanned for back-to-back loops.
var loopPeriods = []int{2, 3}

// minFrequency is the occurrence count below which a subsequence is noise.
const minFrequency = 2

// Params carries the provenance stamped onto emitted observations.
type Params struct {
	SessionID string
	Now       time.Time
	NewID     func() string // defaults to a fresh ULID
}

func (p Params) newID() string {
	if p.NewID != nil {
		return p.NewID()
	}
	return ulid.Make().String()
}

// Analyze reports the minimal covering set of repeating patterns in the
// chain: multi-step workflow sequences and short iterative loops. Degenerate
// input (short chains, no repeats) yields an empty list; it never errors.
func Analyze(chain []string, p Params) []model.Observation {
	var out []model.Observation
	for _, seq := range sequences(chain) {
		out = append(out, seq.observation(p))
	}
	for _, lp := range loops(chain) {
		out = append(out, lp.observation(p))
	}
	return out
}

type sequencePattern struct {
	steps []string
	freq  int
}

// sequences slides windows of length 5, 4, then 3 across the chain, counting
// every distinct contiguous subsequence (occurrences may overlap). A window
// repeating at least twice is a candidate; a candidate is dropped only when a
// longer accepted pattern contains it and recurs at least as often. A shorter
// pattern that recurs strictly more often stands on its own.
func sequences(chain []string) []sequencePattern {
	if len(chain) < windowLengths[len(windowLengths)-1] {
		return nil
	}

	var accepted []sequencePattern
	for _, l := range windowLengths {
		if len(chain) < l {
			continue
		}

		counts := make(map[string]int)
		var order []string
		for i := 0; i+l <= len(chain); i++ {
			key := strings.Join(chain[i:i+l], "\x1f")
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}

		for _, key := range order {
			freq := counts[key]
			if freq < minFrequency {
				continue
			}
			steps := strings.Split(key, "\x1f")
			if subsumed(steps, freq, accepted) {
				continue
			}
			accepted = append(accepted, sequencePattern{steps: steps, freq: freq})
		}
	}
	return accepted
}

// subsumed reports whether steps is a contiguous sub-sequence of an already
// accepted longer pattern with frequency at least freq.
func subsumed(steps []string, freq int, accepted []sequencePattern) bool {
	for _, a := range accepted {
		if len(a.steps) > len(steps) && freq <= a.freq && containsRun(a.steps, steps) {
			return true
		}
	}
	return false
}

// containsRun reports whether needle occurs contiguously within haystack.
func containsRun(haystack, needle []string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalRun(haystack[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func equalRun(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s sequencePattern) observation(p Params) model.Observation {
	text := fmt.Sprintf("Workflow pattern: %s (%d times)", strings.Join(s.steps, " → "), s.freq)
	return newObservation(text, p, map[string]any{
		"sequenceSteps":  s.steps,
		"sequenceLength": len(s.steps),
		"frequency":      s.freq,
	})
}

type loopPattern struct {
	cycle []string
	reps  int
	full  []string
}

// loops scans for runs where a 2- or 3-element cycle repeats back-to-back at
// least twice. The scan is greedy: at each offset it takes the longest run,
// then resumes past it, so overlapping sub-runs of the same loop are not
// reported again.
func loops(chain []string) []loopPattern {
	var out []loopPattern
	for _, p := range loopPeriods {
		i := 0
		for i+2*p <= len(chain) {
			reps := 1
			for i+(reps+1)*p <= len(chain) && equalRun(chain[i:i+p], chain[i+reps*p:i+(reps+1)*p]) {
				reps++
			}
			if reps >= 2 {
				out = append(out, loopPattern{
					cycle: chain[i : i+p],
					reps:  reps,
					full:  chain[i : i+reps*p],
				})
				i += reps * p
				continue
			}
			i++
		}
	}
	return out
}

func (l loopPattern) observation(p Params) model.Observation {
	text := fmt.Sprintf("Iterative loop detected: %s repeated %d times", strings.Join(l.cycle, " → "), l.reps)
	return newObservation(text, p, map[string]any{
		"loopCycle":     l.cycle,
		"loopFrequency": l.reps,
		"fullSequence":  l.full,
	})
}

// Failures reports tools that failed repeatedly within the session, a signal
// of an error-recovery pattern worth surfacing. Tool uses without a recorded
// outcome count as successes.
func Failures(messages []session.Message, p Params) []model.Observation {
	counts := make(map[string]int)
	var order []string
	for _, msg := range messages {
		for _, tu := range msg.ToolUses {
			if tu.Succeeded() {
				continue
			}
			name := tu.Name
			if name == "" {
				name = "unknown"
			}
			if counts[name] == 0 {
				order = append(order, name)
			}
			counts[name]++
		}
	}

	var out []model.Observation
	for _, name := range order {
		n := counts[name]
		if n < minFrequency {
			continue
		}
		text := fmt.Sprintf("Error pattern: %s failed %d times in one session", name, n)
		obs := newObservation(text, p, map[string]any{
			"toolName":     name,
			"failureCount": n,
		})
		obs.Category = model.CategoryPattern
		out = append(out, obs)
	}
	return out
}

func newObservation(text string, p Params, metadata map[string]any) model.Observation {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	return model.Observation{
		ID:               p.newID(),
		Text:             text,
		Category:         model.CategoryWorkflow,
		Count:            1,
		Status:           model.StatusPending,
		SourceSessionIDs: []string{p.SessionID},
		FirstSeen:        now,
		LastSeen:         now,
		Metadata:         metadata,
	}
}
