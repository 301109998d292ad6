// Package timectrl owns playback time for the trajectory viewer: a bounded,
// rate-multiplied clock that maps render frames onto simulated time.
package timectrl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Clock abstracts wall time so loops that tick against real time can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall-clock Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                         { return time.Now() }
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// ErrInvalidRate is returned by SetRate for non-positive multipliers.
var ErrInvalidRate = errors.New("playback rate must be positive")

// Multipliers are the playback rates the viewer surfaces. SetRate accepts
// any positive value; this list only drives UI affordances.
var Multipliers = []float64{1, 30, 60, 120}

// DefaultFrameInterval approximates a 30fps render cadence.
const DefaultFrameInterval = 33 * time.Millisecond

// State is an immutable snapshot of playback state.
type State struct {
	Start      time.Time
	Stop       time.Time
	Current    time.Time
	Multiplier float64
	Playing    bool
}

// AtStop reports whether playback has reached the upper bound.
func (s State) AtStop() bool {
	return !s.Stop.IsZero() && !s.Current.Before(s.Stop)
}

// PlaybackClock advances a current time through a bounded window at a
// configurable multiple of wall time. Until SetBounds is called the clock is
// uninitialized and ticks are ignored. The current time never leaves
// [Start, Stop]: on reaching Stop playback holds there, still marked playing,
// until new bounds arrive.
type PlaybackClock struct {
	mu         sync.RWMutex
	start      time.Time
	stop       time.Time
	current    time.Time
	multiplier float64
	playing    bool
	bounded    bool

	listeners []func(State)
}

// NewPlaybackClock returns an uninitialized clock at 1x.
func NewPlaybackClock() *PlaybackClock {
	return &PlaybackClock{multiplier: 1}
}

// SetBounds installs a new playable window and rewinds the current time to
// its start. Play/pause state and the multiplier survive the reset. A stop
// before start collapses the window to the start instant.
func (pc *PlaybackClock) SetBounds(start, stop time.Time) {
	pc.mu.Lock()
	if stop.Before(start) {
		stop = start
	}
	pc.start = start
	pc.stop = stop
	pc.current = start
	pc.bounded = true
	st := pc.stateLocked()
	listeners := append([](func(State))(nil), pc.listeners...)
	pc.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// Play resumes advancement. It is a no-op before SetBounds.
func (pc *PlaybackClock) Play() {
	pc.mu.Lock()
	if !pc.bounded || pc.playing {
		pc.mu.Unlock()
		return
	}
	pc.playing = true
	st := pc.stateLocked()
	listeners := append([](func(State))(nil), pc.listeners...)
	pc.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// Pause freezes the current time in place.
func (pc *PlaybackClock) Pause() {
	pc.mu.Lock()
	if !pc.playing {
		pc.mu.Unlock()
		return
	}
	pc.playing = false
	st := pc.stateLocked()
	listeners := append([](func(State))(nil), pc.listeners...)
	pc.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

// SetRate changes the playback multiplier. The rate applies from the next
// tick; it never jumps the current time.
func (pc *PlaybackClock) SetRate(multiplier float64) error {
	if multiplier <= 0 {
		return ErrInvalidRate
	}
	pc.mu.Lock()
	if pc.multiplier == multiplier {
		pc.mu.Unlock()
		return nil
	}
	pc.multiplier = multiplier
	st := pc.stateLocked()
	listeners := append([](func(State))(nil), pc.listeners...)
	pc.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
	return nil
}

// Tick advances the current time by elapsed wall time scaled by the
// multiplier, clamping at the window bounds. Paused or uninitialized clocks
// ignore ticks, as do non-positive elapsed values.
func (pc *PlaybackClock) Tick(elapsed time.Duration) State {
	pc.mu.Lock()
	if !pc.bounded || !pc.playing || elapsed <= 0 {
		st := pc.stateLocked()
		pc.mu.Unlock()
		return st
	}

	next := pc.current.Add(time.Duration(float64(elapsed) * pc.multiplier))
	if next.After(pc.stop) {
		next = pc.stop
	}
	if next.Before(pc.start) {
		next = pc.start
	}
	pc.current = next
	st := pc.stateLocked()
	listeners := append([](func(State))(nil), pc.listeners...)
	pc.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
	return st
}

// Snapshot returns the current playback state.
func (pc *PlaybackClock) Snapshot() State {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.stateLocked()
}

// AddListener registers a callback invoked after every state change. The
// callback runs on the mutating goroutine and must not block.
func (pc *PlaybackClock) AddListener(fn func(State)) {
	if fn == nil {
		return
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.listeners = append(pc.listeners, fn)
}

// Run drives Tick at the given frame cadence until ctx is cancelled. A
// non-positive frame interval falls back to DefaultFrameInterval.
func (pc *PlaybackClock) Run(ctx context.Context, frame time.Duration) {
	if frame <= 0 {
		frame = DefaultFrameInterval
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			pc.Tick(now.Sub(last))
			last = now
		}
	}
}

// stateLocked builds a State snapshot. Callers hold pc.mu.
func (pc *PlaybackClock) stateLocked() State {
	return State{
		Start:      pc.start,
		Stop:       pc.stop,
		Current:    pc.current,
		Multiplier: pc.multiplier,
		Playing:    pc.playing,
	}
}
