// Package scene provides SceneAdapter implementations that do not render:
// a discard adapter and an operation recorder used heavily in tests.
package scene

import (
	"sync"
	"time"

	"github.com/signalsfoundry/orbitview/core"
	"github.com/signalsfoundry/orbitview/timectrl"
)

// Noop discards every scene operation.
type Noop struct{}

func (Noop) ClearAll()                                          {}
func (Noop) DrawPath(string, []core.Vec3)                       {}
func (Noop) UpsertTrackedEntity(string, *core.Timeline, string) {}
func (Noop) SetCameraBounds(time.Time, time.Time)               {}
func (Noop) SetClockState(timectrl.State)                       {}

// OpKind names a recorded scene operation.
type OpKind string

const (
	OpClearAll        OpKind = "clear_all"
	OpDrawPath        OpKind = "draw_path"
	OpUpsertEntity    OpKind = "upsert_entity"
	OpSetCameraBounds OpKind = "set_camera_bounds"
	OpSetClockState   OpKind = "set_clock_state"
)

// Op is one recorded scene mutation with whichever fields apply.
type Op struct {
	Kind     OpKind
	ID       string
	Label    string
	Points   []core.Vec3
	Timeline *core.Timeline
	Start    time.Time
	Stop     time.Time
	Clock    timectrl.State
}

// Recorder captures scene operations in arrival order for inspection.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) ClearAll() {
	r.record(Op{Kind: OpClearAll})
}

func (r *Recorder) DrawPath(id string, points []core.Vec3) {
	r.record(Op{Kind: OpDrawPath, ID: id, Points: points})
}

func (r *Recorder) UpsertTrackedEntity(id string, tl *core.Timeline, label string) {
	r.record(Op{Kind: OpUpsertEntity, ID: id, Label: label, Timeline: tl})
}

func (r *Recorder) SetCameraBounds(start, stop time.Time) {
	r.record(Op{Kind: OpSetCameraBounds, Start: start, Stop: stop})
}

func (r *Recorder) SetClockState(st timectrl.State) {
	r.record(Op{Kind: OpSetClockState, Clock: st})
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns a copy of every recorded operation in order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// OpsOfKind filters recorded operations by kind, preserving order.
func (r *Recorder) OpsOfKind(kind OpKind) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	for _, op := range r.ops {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Reset drops all recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}
