// Package lifecycle decides whether a report can still be edited by its owner.
//
// A report is Fresh while less than the edit window has elapsed since its
// creation and Locked afterwards. The state is never stored: it is recomputed
// from the creation timestamp and the clock on every evaluation, and Locked is
// terminal because the elapsed time only grows.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EditWindow is how long an owner may revise a report after submitting it.
const EditWindow = 2 * time.Hour

var (
	ErrLocked   = errors.New("report edit window has closed")
	ErrNotOwner = errors.New("only the report owner can edit it")
)

type State int

const (
	Locked State = iota
	Fresh
)

func (s State) String() string {
	if s == Fresh {
		return "fresh"
	}
	return "locked"
}

// Subject is the part of a report the engine looks at.
type Subject struct {
	OwnerID   string
	CreatedAt time.Time
}

type Status struct {
	State     State
	Remaining time.Duration
}

func (s Status) Editable() bool { return s.State == Fresh }

// Countdown renders the remaining time as H:MM:SS.
func (s Status) Countdown() string { return FormatCountdown(s.Remaining) }

type Clock func() time.Time

type Engine struct {
	window time.Duration
	now    Clock
}

// NewEngine builds an engine. A non-positive window means EditWindow and a
// nil clock means time.Now.
func NewEngine(window time.Duration, now Clock) *Engine {
	if window <= 0 {
		window = EditWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{window: window, now: now}
}

func (e *Engine) Window() time.Duration { return e.window }

func (e *Engine) Now() time.Time { return e.now() }

// Cutoff is the oldest creation time that is still Fresh at now, exclusive:
// a report is Fresh iff CreatedAt is after Cutoff(now).
func (e *Engine) Cutoff(now time.Time) time.Time {
	return now.Add(-e.window)
}

// Evaluate classifies s for callerID at the engine's current time.
func (e *Engine) Evaluate(s Subject, callerID string) Status {
	return e.EvaluateAt(s, callerID, e.now())
}

// EvaluateAt classifies s for callerID at now. Callers other than the owner
// always see Locked.
func (e *Engine) EvaluateAt(s Subject, callerID string, now time.Time) Status {
	if callerID == "" || callerID != s.OwnerID {
		return Status{State: Locked}
	}
	elapsed := now.Sub(s.CreatedAt)
	if elapsed < e.window {
		return Status{State: Fresh, Remaining: e.window - elapsed}
	}
	return Status{State: Locked}
}

// Authorize returns nil when callerID may edit s right now.
func (e *Engine) Authorize(s Subject, callerID string) error {
	if callerID == "" || callerID != s.OwnerID {
		return ErrNotOwner
	}
	if !e.Evaluate(s, callerID).Editable() {
		return ErrLocked
	}
	return nil
}

// Watch emits the status of s every interval until it becomes Locked or ctx
// is done. The first status is emitted immediately and the last one sent is
// Locked unless ctx ended first. The channel is closed on return.
func (e *Engine) Watch(ctx context.Context, s Subject, callerID string, interval time.Duration) <-chan Status {
	out := make(chan Status, 1)
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			st := e.Evaluate(s, callerID)
			select {
			case out <- st:
			case <-ctx.Done():
				return
			}
			if !st.Editable() {
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// FormatCountdown renders d as H:MM:SS, flooring to whole seconds.
// Hours are not padded; negative durations render as 0:00:00.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
