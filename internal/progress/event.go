// Package progress defines the event stream emitted by scrape tasks and the
// hub that fans events out to reporting sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageTaskStart Stage = "TASK_START"
	StageTaskStep  Stage = "TASK_STEP"
	StageTaskDone  Stage = "TASK_DONE"
	StageTaskError Stage = "TASK_ERROR"
	StageBatchDone Stage = "BATCH_DONE"
)

// Event captures a single milestone of batch progress.
type Event struct {
	// TaskID identifies one task run in 16-byte UUID form. Zero for
	// batch-level events.
	TaskID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Category and Location identify the task's combination.
	Category string
	Location string
	// Step and Outcome describe TASK_STEP events (soft UI interactions).
	Step    string
	Outcome string
	// Records counts extracted products for TASK_DONE events.
	Records int64
	// ScrollCycles counts scroll cycles executed for TASK_DONE events.
	ScrollCycles int64
	// Dur captures task or batch wall time.
	Dur time.Duration
	// Note carries low-volume context, e.g. error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageBatchDone:
	case StageTaskStart, StageTaskDone, StageTaskError:
		if e.TaskID == [16]byte{} {
			return errors.New("task id is required")
		}
	case StageTaskStep:
		if e.TaskID == [16]byte{} {
			return errors.New("task id is required")
		}
		if e.Step == "" || e.Outcome == "" {
			return errors.New("task step requires step and outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// TaskUUID converts the binary task ID to uuid.UUID for display.
func (e Event) TaskUUID() uuid.UUID {
	return uuid.UUID(e.TaskID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
