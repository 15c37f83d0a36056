package scraper

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shelfscope/shelfscope/internal/progress"
)

// fakeSession is a scriptable Session for state-machine tests.
type fakeSession struct {
	mu sync.Mutex

	visible     map[string]bool
	cardCounts  []int // successive count results; the last value repeats
	countCalls  int
	cards       []RawCard
	vendorTitle string

	navErrSubstr string // Navigate fails when the URL contains this
	clickErr     error
	navigated    []string
	evals        []string
	clicks       []string
	closed       bool
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	if f.navErrSubstr != "" && strings.Contains(url, f.navErrSubstr) {
		return errNavFailed
	}
	return nil
}

func (f *fakeSession) IsVisible(_ context.Context, selector string, _ time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible[selector]
}

func (f *fakeSession) Click(_ context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicks = append(f.clicks, selector)
	return f.clickErr
}

func (f *fakeSession) Fill(_ context.Context, _, _ string) error { return nil }

func (f *fakeSession) Press(_ context.Context, _, _ string) error { return nil }

func (f *fakeSession) Evaluate(_ context.Context, js string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evals = append(f.evals, js)
	switch dst := out.(type) {
	case *int:
		idx := f.countCalls
		if idx >= len(f.cardCounts) {
			idx = len(f.cardCounts) - 1
		}
		*dst = f.cardCounts[idx]
		f.countCalls++
	case *[]RawCard:
		*dst = append([]RawCard(nil), f.cards...)
	case *string:
		*dst = f.vendorTitle
	}
	return nil
}

func (f *fakeSession) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) evalCount(js string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.evals {
		if e == js {
			n++
		}
	}
	return n
}

var errNavFailed = errNav{}

type errNav struct{}

func (errNav) Error() string { return "navigation refused" }

// fakeFactory hands out sessions from a constructor so concurrent tasks get
// isolated fakes.
type fakeFactory struct {
	newSess func() (Session, error)
}

func (f *fakeFactory) NewSession(_ context.Context, _ *rand.Rand) (Session, error) {
	return f.newSess()
}

// fakeClock advances a fixed step per Now call.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC), step: time.Second}
}

// fakeRunner lets orchestrator tests script per-task behavior without
// sessions.
type fakeRunner struct {
	mu    sync.Mutex
	run   func(Task) (TaskResult, error)
	tasks []Task
}

func (r *fakeRunner) Run(_ context.Context, task Task) (TaskResult, error) {
	r.mu.Lock()
	r.tasks = append(r.tasks, task)
	r.mu.Unlock()
	res, err := r.run(task)
	res.Task = task
	return res, err
}

// capturingEmitter collects progress events for assertions.
type capturingEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *capturingEmitter) Emit(ev progress.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *capturingEmitter) stepNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var names []string
	for _, ev := range e.events {
		if ev.Stage == progress.StageTaskStep {
			names = append(names, ev.Step)
		}
	}
	return names
}

func (e *capturingEmitter) stages() []progress.Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	var stages []progress.Stage
	for _, ev := range e.events {
		stages = append(stages, ev.Stage)
	}
	return stages
}

// testConfig returns a Config with all waits zeroed so tests run fast.
func testConfig(outputDir string) Config {
	return Config{
		OutputDir:         outputDir,
		CombinedFilename:  "combined.xlsx",
		MaxScrollCycles:   10,
		RoundsStable:      2,
		ScrollDelayMin:    0,
		ScrollDelayMax:    0,
		Workers:           2,
		CategoryFile:      "categories.txt",
		LocationsFile:     "locations.txt",
		LogDir:            "logs",
		BaseURL:           "https://instashop.com",
		DefaultLocale:     "en-eg",
		NavigationTimeout: 5 * time.Second,
		StepTimeout:       10 * time.Millisecond,
		SettleDelay:       0,
		HomepageQPS:       0,
	}
}
