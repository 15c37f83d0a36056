package scraper

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Session is the rendering capability used by the task state machine. One
// session owns one isolated browser instance for the lifetime of one task and
// must be closed on every exit path.
//
// Selector strings starting with "//" are treated as XPath by adapters;
// everything else is a CSS query selector.
type Session interface {
	// Navigate loads a URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// IsVisible reports whether a matching element becomes visible within
	// the timeout. Probe errors count as not visible.
	IsVisible(ctx context.Context, selector string, timeout time.Duration) bool
	Click(ctx context.Context, selector string) error
	// Fill types a value into a text input.
	Fill(ctx context.Context, selector, value string) error
	// Press sends a key chord (e.g. arrow down, enter) to an element.
	Press(ctx context.Context, selector, key string) error
	// Evaluate runs a read-only script against the loaded DOM and decodes
	// the result into out. A nil out discards the result.
	Evaluate(ctx context.Context, js string, out any) error
	Close(ctx context.Context) error
}

// SessionFactory acquires isolated rendering instances. The task-scoped rng
// drives viewport and user-agent randomization so tests can inject
// determinism.
type SessionFactory interface {
	NewSession(ctx context.Context, rng *rand.Rand) (Session, error)
}

// ArtifactStore persists and reads per-task record tables.
type ArtifactStore interface {
	// Write saves records for one task and returns the artifact path.
	// Callers must not invoke Write with zero records; an empty task
	// produces no artifact at all.
	Write(ctx context.Context, task Task, vendor string, capturedAt time.Time, records []ProductRecord) (string, error)
	Read(ctx context.Context, path string) ([]ProductRecord, error)
}

// TaskRunner executes one task end to end.
type TaskRunner interface {
	Run(ctx context.Context, task Task) (TaskResult, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task IDs (UUIDs).
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}
