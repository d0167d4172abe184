package bot

import "time"

// Recorder receives tick outcomes (Prometheus in production).
type Recorder interface {
	Published(cursor int, at time.Time)
	PublishFailed(kind string)
	CursorSaveFailed()
	TickDone(d time.Duration)
	ContentLoaded(messages, cursor int, reload bool)
}

type nopRecorder struct{}

func (nopRecorder) Published(int, time.Time) {}
func (nopRecorder) PublishFailed(string) {}
func (nopRecorder) CursorSaveFailed() {}
func (nopRecorder) TickDone(time.Duration) {}
func (nopRecorder) ContentLoaded(int, int, bool) {}
