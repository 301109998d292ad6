// Package scenefeed broadcasts viewer scene operations to HTTP subscribers as
// Server-Sent Events, so a browser globe can render the engine's scene without
// embedding it. Each operation is one `data: {json}` event; keep-alive
// comments (`:`) are sent while the scene is idle.
package scenefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/internal/logging"
	"github.com/signalsfoundry/orbitview/timectrl"
)

// DefaultKeepaliveInterval is how often idle streams receive a comment so
// proxies do not time the connection out.
const DefaultKeepaliveInterval = 15 * time.Second

// subscriberBuffer bounds how many undelivered events a slow subscriber may
// accumulate before events are dropped for it.
const subscriberBuffer = 64

// event is the wire shape of one scene operation.
type event struct {
	Op         string       `json:"op"`
	ID         string       `json:"id,omitempty"`
	Label      string       `json:"label,omitempty"`
	PointsM    [][3]float64 `json:"points_m,omitempty"`
	PositionM  *[3]float64  `json:"position_m,omitempty"`
	StartUTC   string       `json:"start_utc,omitempty"`
	StopUTC    string       `json:"stop_utc,omitempty"`
	CurrentUTC string       `json:"current_utc,omitempty"`
	Multiplier float64      `json:"multiplier,omitempty"`
	Playing    bool         `json:"playing,omitempty"`
}

// Feed is a core.SceneAdapter that fans scene operations out to SSE
// subscribers. It keeps the current scene (last path, entity, camera, and
// clock state) so late subscribers are brought up to date on connect instead
// of seeing an empty globe until the next reselect.
type Feed struct {
	log       logging.Logger
	keepalive time.Duration

	mu       sync.Mutex
	subs     map[chan []byte]struct{}
	replay   []event // clear + draws for the current session, in order
	timeline *core.Timeline
	entityID string
}

// FeedOption customises a Feed.
type FeedOption func(*Feed)

// WithKeepaliveInterval overrides the idle-stream keep-alive cadence.
func WithKeepaliveInterval(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.keepalive = d
		}
	}
}

// New builds an empty feed.
func New(log logging.Logger, opts ...FeedOption) *Feed {
	if log == nil {
		log = logging.Noop()
	}
	f := &Feed{
		log:       log,
		keepalive: DefaultKeepaliveInterval,
		subs:      make(map[chan []byte]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// ClearAll implements core.SceneAdapter.
func (f *Feed) ClearAll() {
	ev := event{Op: "clear_all"}
	f.mu.Lock()
	f.replay = []event{ev}
	f.timeline = nil
	f.entityID = ""
	f.broadcastLocked(ev)
	f.mu.Unlock()
}

// DrawPath implements core.SceneAdapter.
func (f *Feed) DrawPath(id string, points []core.Vec3) {
	ev := event{Op: "draw_path", ID: id, PointsM: packPoints(points)}
	f.mu.Lock()
	f.replay = append(f.replay, ev)
	f.broadcastLocked(ev)
	f.mu.Unlock()
}

// UpsertTrackedEntity implements core.SceneAdapter. The timeline reference is
// retained: every subsequent clock-state push samples it for the marker
// position, so live-appended samples show up without a redraw.
func (f *Feed) UpsertTrackedEntity(id string, tl *core.Timeline, label string) {
	ev := event{Op: "upsert_entity", ID: id, Label: label}
	f.mu.Lock()
	f.timeline = tl
	f.entityID = id
	f.replay = append(f.replay, ev)
	f.broadcastLocked(ev)
	f.mu.Unlock()
}

// SetCameraBounds implements core.SceneAdapter.
func (f *Feed) SetCameraBounds(start, stop time.Time) {
	ev := event{
		Op:       "set_camera_bounds",
		StartUTC: start.UTC().Format(time.RFC3339),
		StopUTC:  stop.UTC().Format(time.RFC3339),
	}
	f.mu.Lock()
	f.replay = append(f.replay, ev)
	f.broadcastLocked(ev)
	f.mu.Unlock()
}

// SetClockState implements core.SceneAdapter. Alongside the playback state it
// carries the tracked marker's position at the clock's current time.
func (f *Feed) SetClockState(st timectrl.State) {
	f.mu.Lock()
	ev := f.clockEventLocked(st)
	f.broadcastLocked(ev)
	f.mu.Unlock()
}

func (f *Feed) clockEventLocked(st timectrl.State) event {
	ev := event{
		Op:         "set_clock_state",
		StartUTC:   st.Start.UTC().Format(time.RFC3339),
		StopUTC:    st.Stop.UTC().Format(time.RFC3339),
		CurrentUTC: st.Current.UTC().Format(time.RFC3339),
		Multiplier: st.Multiplier,
		Playing:    st.Playing,
	}
	if f.timeline != nil {
		pos := f.timeline.At(st.Current)
		ev.ID = f.entityID
		ev.PositionM = &[3]float64{pos.X, pos.Y, pos.Z}
	}
	return ev
}

// broadcastLocked marshals ev and hands it to every subscriber channel.
// Subscribers that cannot keep up lose events rather than stalling the scene.
// Callers hold f.mu.
func (f *Feed) broadcastLocked(ev event) {
	data, err := json.Marshal(ev)
	if err != nil {
		f.log.Warn(context.Background(), "scene event marshal failed", logging.String("op", ev.Op), logging.String("error", err.Error()))
		return
	}
	for ch := range f.subs {
		select {
		case ch <- data:
		default:
		}
	}
}

// Subscribers reports how many streams are currently connected.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// subscribe registers a channel and returns it preloaded with the replay of
// the current scene, plus the unsubscribe func.
func (f *Feed) subscribe() (chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	f.mu.Lock()
	for _, ev := range f.replay {
		if data, err := json.Marshal(ev); err == nil {
			ch <- data
		}
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
}

// ServeHTTP streams scene events to one subscriber until it disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Long-lived stream: clear any server-level write deadline.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		f.log.Debug(r.Context(), "could not clear write deadline", logging.String("error", err.Error()))
	}

	ch, unsubscribe := f.subscribe()
	defer unsubscribe()

	f.log.Info(r.Context(), "scene subscriber connected",
		logging.String("remote", r.RemoteAddr),
		logging.Int("subscribers", f.Subscribers()))
	defer f.log.Info(r.Context(), "scene subscriber disconnected",
		logging.String("remote", r.RemoteAddr))

	keepalive := time.NewTicker(f.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
			keepalive.Reset(f.keepalive)
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func packPoints(points []core.Vec3) [][3]float64 {
	out := make([][3]float64, len(points))
	for i, p := range points {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}
	return out
}
