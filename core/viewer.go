package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/model"
	"github.com/signalsfoundry/orbitview/timectrl"
)

// Errors returned by Viewer.Select.
var (
	// ErrNoSatellite indicates Select was called without a satellite id.
	ErrNoSatellite = errors.New("satellite id is required")
	// ErrEmptyTrack indicates the backend produced no usable samples, so no
	// timeline could be built. The scene stays cleared.
	ErrEmptyTrack = errors.New("ground track is empty")
	// ErrSuperseded indicates a newer selection replaced this one before it
	// finished. Its results were discarded without touching the scene.
	ErrSuperseded = errors.New("selection superseded by a newer one")
	// ErrViewerClosed indicates the viewer was already closed.
	ErrViewerClosed = errors.New("viewer is closed")
)

// Defaults for selection behaviour, overridable per viewer.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultTrackWindow  = 90 * time.Minute
	DefaultTrackStep    = 30 * time.Second
)

// TrackProvider is the slice of the propagation backend the viewer needs:
// a forward ground track on selection and live samples while tracking.
type TrackProvider interface {
	GroundTrack(ctx context.Context, satellite string, window, step time.Duration) (model.GroundTrack, error)
	CurrentPosition(ctx context.Context, satellite string) (model.TrackPoint, error)
}

// ViewerMetricsRecorder receives viewer events for metrics export.
// Implementations must be safe for concurrent use; a nil recorder disables
// recording.
type ViewerMetricsRecorder interface {
	RecordTrackLoad(d time.Duration, points int, err error)
	RecordLivePoll(appended bool, err error)
	RecordStaleDrop()
	SetTimelinePoints(n int)
}

// Viewer owns the tracked-satellite lifecycle: it loads ground tracks,
// builds position timelines, drives the scene adapter, configures playback
// bounds, and keeps the active timeline topped up with live samples.
//
// At most one session is live at a time. Selecting a new satellite tears the
// previous session down first; results from superseded sessions are dropped
// by a generation check, never drawn. After a failed selection the scene
// remains cleared rather than restoring the prior satellite's visuals.
type Viewer struct {
	provider TrackProvider
	scene    SceneAdapter
	clock    *timectrl.PlaybackClock
	wall     timectrl.Clock
	log      logging.Logger
	metrics  ViewerMetricsRecorder
	labeler  func(id string) string

	pollInterval time.Duration
	trackWindow  time.Duration
	trackStep    time.Duration

	// mu guards session bookkeeping and stays out of scene calls. sceneMu
	// serialises gen-checked scene mutations so a clear for a new session
	// can never interleave with draws for an old one.
	mu         sync.Mutex
	sceneMu    sync.Mutex
	generation uint64
	current    *session
	closed     bool
}

// ViewerOption customises a Viewer.
type ViewerOption func(*Viewer)

// WithPlaybackClock supplies the playback clock the viewer configures on
// each load. Defaults to a fresh clock.
func WithPlaybackClock(pc *timectrl.PlaybackClock) ViewerOption {
	return func(v *Viewer) {
		if pc != nil {
			v.clock = pc
		}
	}
}

// WithPollInterval overrides the live polling cadence.
func WithPollInterval(d time.Duration) ViewerOption {
	return func(v *Viewer) {
		if d > 0 {
			v.pollInterval = d
		}
	}
}

// WithTrackWindow overrides the requested track coverage and sample step.
func WithTrackWindow(window, step time.Duration) ViewerOption {
	return func(v *Viewer) {
		if window > 0 {
			v.trackWindow = window
		}
		if step > 0 {
			v.trackStep = step
		}
	}
}

// WithMetricsRecorder attaches a metrics sink.
func WithMetricsRecorder(m ViewerMetricsRecorder) ViewerOption {
	return func(v *Viewer) { v.metrics = m }
}

// WithWallClock swaps the wall clock that schedules live polls. Tests use a
// manual clock here.
func WithWallClock(c timectrl.Clock) ViewerOption {
	return func(v *Viewer) {
		if c != nil {
			v.wall = c
		}
	}
}

// WithLabeler maps satellite ids to the labels drawn next to the tracked
// marker. Defaults to the id itself.
func WithLabeler(fn func(id string) string) ViewerOption {
	return func(v *Viewer) {
		if fn != nil {
			v.labeler = fn
		}
	}
}

// NewViewer wires a viewer over the given backend and scene. The viewer
// subscribes to the playback clock and forwards every state change to the
// scene adapter.
func NewViewer(provider TrackProvider, scene SceneAdapter, log logging.Logger, opts ...ViewerOption) *Viewer {
	if log == nil {
		log = logging.Noop()
	}
	v := &Viewer{
		provider:     provider,
		scene:        scene,
		wall:         timectrl.SystemClock{},
		log:          log,
		labeler:      func(id string) string { return id },
		pollInterval: DefaultPollInterval,
		trackWindow:  DefaultTrackWindow,
		trackStep:    DefaultTrackStep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.clock == nil {
		v.clock = timectrl.NewPlaybackClock()
	}

	// The clock may keep ticking after Close (its Run loop is owned by the
	// caller), so the forwarder checks liveness before touching the scene.
	v.clock.AddListener(func(st timectrl.State) {
		v.mu.Lock()
		closed := v.closed
		v.mu.Unlock()
		if closed {
			return
		}
		v.scene.SetClockState(st)
	})
	return v
}

// Clock returns the playback clock the viewer drives.
func (v *Viewer) Clock() *timectrl.PlaybackClock { return v.clock }

// Select switches the tracked satellite. In order: tear down the previous
// session, clear the scene, load the ground track, build the timeline, set
// playback bounds, draw the path and marker, and start live polling.
//
// On any failure after the clear, the scene stays cleared and the error is
// returned; the previous satellite never reappears. If a newer Select
// supersedes this one mid-flight, ErrSuperseded is returned and nothing is
// drawn.
func (v *Viewer) Select(ctx context.Context, satellite string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if satellite == "" {
		return ErrNoSatellite
	}

	sess, err := v.beginSession(satellite)
	if err != nil {
		return err
	}

	// The load honours both the caller's context and session teardown.
	fetchCtx, cancelFetch := context.WithCancel(ctx)
	defer cancelFetch()
	stop := context.AfterFunc(sess.ctx, cancelFetch)
	defer stop()

	start := v.wall.Now()
	track, err := v.provider.GroundTrack(fetchCtx, satellite, v.trackWindow, v.trackStep)
	elapsed := v.wall.Now().Sub(start)
	if v.metrics != nil {
		v.metrics.RecordTrackLoad(elapsed, len(track), err)
	}
	if err != nil {
		if v.isSuperseded(sess) {
			v.recordStaleDrop()
			return ErrSuperseded
		}
		v.log.Warn(ctx, "ground track load failed; scene left cleared",
			logging.String("satellite", satellite),
			logging.String("error", err.Error()))
		return fmt.Errorf("loading track for %s: %w", satellite, err)
	}
	if len(track) == 0 {
		if v.isSuperseded(sess) {
			v.recordStaleDrop()
			return ErrSuperseded
		}
		v.log.Warn(ctx, "ground track came back empty; scene left cleared",
			logging.String("satellite", satellite))
		return fmt.Errorf("loading track for %s: %w", satellite, ErrEmptyTrack)
	}

	timeline, err := NewTimeline(track)
	if err != nil {
		return fmt.Errorf("loading track for %s: %w", satellite, err)
	}

	applied := v.apply(sess, func() {
		sess.timeline = timeline
		first, last := timeline.Span()
		v.clock.SetBounds(first, last)
		v.scene.DrawPath(satellite, timeline.Positions())
		v.scene.UpsertTrackedEntity(satellite, timeline, v.labeler(satellite))
		v.scene.SetCameraBounds(first, last)
		v.startPoller(sess)
	})
	if !applied {
		v.recordStaleDrop()
		return ErrSuperseded
	}
	if v.metrics != nil {
		v.metrics.SetTimelinePoints(timeline.Len())
	}

	first, last := timeline.Span()
	v.log.Info(ctx, "satellite selected",
		logging.String("satellite", satellite),
		logging.Int("points", timeline.Len()),
		logging.String("window_start", first.Format(time.RFC3339)),
		logging.String("window_stop", last.Format(time.RFC3339)))
	return nil
}

// Close tears down the live session: the poll loop is stopped and any
// in-flight request is cancelled. The scene is left untouched. Close is
// idempotent and returns only after the poller has fully stopped.
func (v *Viewer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.waitPoller(v.detachSession())
}

// Selected reports the currently tracked satellite, if any.
func (v *Viewer) Selected() (satellite string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return "", false
	}
	return v.current.satellite, true
}

// beginSession replaces the current session with a fresh one for satellite
// and clears the scene. On return, results from any older session can no
// longer reach the scene.
func (v *Viewer) beginSession(satellite string) (*session, error) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrViewerClosed
	}
	v.mu.Unlock()

	// Stop the previous poller before its replacement starts so exactly one
	// poll loop survives rapid reselection.
	v.waitPoller(v.detachSession())

	v.sceneMu.Lock()
	defer v.sceneMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil, ErrViewerClosed
	}
	v.generation++
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		satellite:  satellite,
		generation: v.generation,
		ctx:        ctx,
		cancel:     cancel,
	}
	v.current = sess
	v.mu.Unlock()

	v.scene.ClearAll()
	return sess, nil
}

// detachSession cancels and unregisters the current session, returning it so
// the caller can wait for its poller.
func (v *Viewer) detachSession() *session {
	v.mu.Lock()
	defer v.mu.Unlock()
	sess := v.current
	if sess != nil {
		sess.cancel()
		v.current = nil
	}
	return sess
}

func (v *Viewer) waitPoller(sess *session) {
	if sess != nil && sess.pollerDone != nil {
		<-sess.pollerDone
	}
}

// apply runs fn under the scene mutex if and only if sess is still the
// current session. This is the stale-result guard: superseded sessions find
// their generation retired and never mutate scene or timeline state.
func (v *Viewer) apply(sess *session, fn func()) bool {
	v.sceneMu.Lock()
	defer v.sceneMu.Unlock()

	v.mu.Lock()
	ok := !v.closed && v.current == sess
	v.mu.Unlock()
	if !ok {
		return false
	}
	fn()
	return true
}

func (v *Viewer) isSuperseded(sess *session) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed || v.current != sess
}

func (v *Viewer) recordStaleDrop() {
	if v.metrics != nil {
		v.metrics.RecordStaleDrop()
	}
}
