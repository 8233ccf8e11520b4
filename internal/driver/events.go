package driver

import "time"

// Stage describes a high-level phase of a directory run.
type Stage string

const (
	// StageLoad covers reading and decoding a snapshot.
	StageLoad Stage = "load"
	// StageAnalyze covers the liveness pass over a decoded snapshot.
	StageAnalyze Stage = "analyze"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the snapshot is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the snapshot is currently being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished; findings, if any, live in
	// the result bag.
	StatusDone Status = "done"
	// StatusError indicates the snapshot could not be processed at all.
	StatusError Status = "error"
)

// Event reports progress for one snapshot (or for the whole run when File
// is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
