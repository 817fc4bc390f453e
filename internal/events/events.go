// Package events provides an append-only audit trail for awsts.
//
// Events are simple, synchronous records of what the doctor and repair
// services did to this machine. The recorder writes JSON lines to
// <storageDir>/events.jsonl; the reader scans them back. Recording is
// best-effort: errors are logged to stderr but never returned to callers.
package events

import "time"

// Event type constants. Only types we actually emit today.
const (
	DoctorRun     = "doctor.run"
	RepairApplied = "repair.applied"
	RepairFailed  = "repair.failed"
	BackupWritten = "backup.written"
)

// Event is a single recorded occurrence in the system.
type Event struct {
	Seq     uint64    `json:"seq"`
	Type    string    `json:"type"`
	Ts      time.Time `json:"ts"`
	Actor   string    `json:"actor"`
	Subject string    `json:"subject,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Recorder records events. Safe for concurrent use. Best-effort.
type Recorder interface {
	Record(e Event)
}

// Discard silently drops all events.
var Discard Recorder = discardRecorder{}

type discardRecorder struct{}

func (discardRecorder) Record(Event) {}
