package submission

import "time"

// Clock abstracts wall time so the progress interpolation is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FrameScheduler schedules a single callback for the next animation
// frame. The upload progress bar re-schedules itself frame by frame;
// the returned cancel discards the pending callback so a stale frame
// cannot resurrect a closed flow.
type FrameScheduler interface {
	Schedule(fn func()) (cancel func())
}

const frameInterval = 16 * time.Millisecond

type timerFrames struct {
	interval time.Duration
}

func (t timerFrames) Schedule(fn func()) func() {
	timer := time.AfterFunc(t.interval, fn)
	return func() { timer.Stop() }
}
