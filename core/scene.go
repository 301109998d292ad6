package core

import (
	"time"

	"github.com/signalsfoundry/orbitview/timectrl"
)

// SceneAdapter is the drawing surface the viewer pushes scene mutations to.
// The viewer guarantees that ClearAll for a session happens before any draw
// for that session, and that draws for superseded sessions are suppressed.
// Implementations must tolerate concurrent calls: clock-state pushes arrive
// on the playback goroutine while draws arrive on the selecting goroutine.
type SceneAdapter interface {
	// ClearAll removes every entity and path from the scene.
	ClearAll()

	// DrawPath draws the ground track polyline for the identified satellite.
	// Points are Earth-fixed metres in time order.
	DrawPath(id string, points []Vec3)

	// UpsertTrackedEntity installs or replaces the tracked marker. The
	// timeline reference stays live: the adapter samples it against clock
	// state pushes, picking up appended samples without a redraw.
	UpsertTrackedEntity(id string, tl *Timeline, label string)

	// SetCameraBounds frames the view around the loaded track window.
	SetCameraBounds(start, stop time.Time)

	// SetClockState pushes the playback state after every change.
	SetClockState(st timectrl.State)
}
