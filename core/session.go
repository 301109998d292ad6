package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/orbitview/internal/logging"
)

// session is the live fetch/poll context for one selected satellite. A new
// Select replaces it wholesale; the generation and context let results from
// a replaced session be recognised and dropped.
type session struct {
	satellite  string
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc

	timeline   *Timeline
	pollerDone chan struct{}
}

// startPoller launches the live-augmentation loop for sess. Callers hold the
// scene mutex via apply, so the poller for the previous session is already
// stopped. The loop exits when the session context is cancelled.
func (v *Viewer) startPoller(sess *session) {
	sess.pollerDone = make(chan struct{})
	go v.pollLoop(sess)
}

// pollLoop fetches the current position every poll interval and appends it to
// the session timeline. A failed poll is logged and swallowed; the next round
// proceeds on schedule. Slow polls never block the playback clock, which runs
// on its own goroutine.
func (v *Viewer) pollLoop(sess *session) {
	defer close(sess.pollerDone)

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-v.wall.After(v.pollInterval):
		}

		v.pollOnce(sess)
	}
}

func (v *Viewer) pollOnce(sess *session) {
	ctx, cancel := context.WithTimeout(sess.ctx, v.pollInterval)
	defer cancel()

	point, err := v.provider.CurrentPosition(ctx, sess.satellite)
	if err != nil {
		if sess.ctx.Err() != nil {
			// Teardown raced the fetch; not a poll failure.
			return
		}
		if v.metrics != nil {
			v.metrics.RecordLivePoll(false, err)
		}
		v.log.Warn(sess.ctx, "live position poll failed",
			logging.String("satellite", sess.satellite),
			logging.String("error", err.Error()))
		return
	}

	appended := false
	applied := v.apply(sess, func() {
		appended = sess.timeline.Append(point)
	})
	if !applied {
		v.recordStaleDrop()
		return
	}
	if v.metrics != nil {
		v.metrics.RecordLivePoll(appended, nil)
		v.metrics.SetTimelinePoints(sess.timeline.Len())
	}
	if appended {
		v.log.Debug(sess.ctx, "live sample appended",
			logging.String("satellite", sess.satellite),
			logging.String("time_utc", point.TimeUTC.Format(time.RFC3339)),
			logging.Int("points", sess.timeline.Len()))
	}
}
