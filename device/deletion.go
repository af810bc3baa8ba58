package device

import "github.com/andewx/dieselpt/config"

// deletionQueue defers GPU object destruction until every frame that
// might still reference the object has retired, per spec.md §3/§4.1:
// an entry queued in frame N is only run after kMaxFramesInFlight
// frames have completed, never before. Grounded on the teacher's
// pattern of collecting per-frame cleanup callbacks (managers.go), but
// the teacher never bounds the delay to the in-flight-frame count —
// this does, since spec.md is explicit about the invariant.
type deletionQueue struct {
	pending [config.MaxFramesInFlight][]func()
}

// QueueDeletion schedules fn to run once kMaxFramesInFlight frames have
// elapsed since the call (i.e. after the current frame's sync object is
// guaranteed to have signaled and be reused).
func (d *Device) QueueDeletion(fn func()) {
	slot := d.currentFrame
	d.deletion.pending[slot] = append(d.deletion.pending[slot], fn)
}

// processDeletionQueue runs and clears the callbacks due this frame.
// Called once per BeginFrame, after the frame's fence has been waited
// on, so every callback due this slot is safe to execute.
func (d *Device) processDeletionQueue() {
	slot := d.currentFrame
	due := d.deletion.pending[slot]
	d.deletion.pending[slot] = nil
	for _, fn := range due {
		fn()
	}
}
