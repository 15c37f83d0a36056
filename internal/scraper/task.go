package scraper

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shelfscope/shelfscope/internal/progress"
)

// Runner executes one task as a sequence of session states: acquire browser,
// homepage, cookie consent, location, category, filter, scroll, extract,
// close. Soft steps degrade fidelity on failure; hard steps abort the task.
type Runner struct {
	factory SessionFactory
	store   ArtifactStore
	clock   Clock
	cfg     Config
	emitter progress.Emitter
	logger  *zap.Logger

	// seeder derives the task-scoped rng seed; replaceable in tests.
	seeder func(Task) int64
}

// NewRunner constructs a Runner.
func NewRunner(
	factory SessionFactory,
	store ArtifactStore,
	clock Clock,
	cfg Config,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		factory: factory,
		store:   store,
		clock:   clock,
		cfg:     cfg,
		emitter: emitter,
		logger:  logger,
		seeder: func(t Task) int64 {
			return time.Now().UnixNano() ^ int64(binary.BigEndian.Uint64(t.ID[:8]))
		},
	}
}

// Run scrapes one (category, location) combination. The browser instance is
// released on every exit path.
func (r *Runner) Run(ctx context.Context, task Task) (TaskResult, error) {
	res := TaskResult{Task: task, Started: r.clock.Now()}
	logger := r.logger.With(
		zap.String("task_id", task.ID.String()),
		zap.String("category", task.CategoryURL),
		zap.String("location", task.Location),
	)

	rng := rand.New(rand.NewSource(r.seeder(task))) //nolint:gosec // jitter, not crypto

	sess, err := r.factory.NewSession(ctx, rng)
	if err != nil {
		return res, fmt.Errorf("acquire browser session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("session close failed", zap.Error(cerr))
		}
	}()

	// Homepage first: cookies and delivery location are set there before
	// the category page loads.
	locale := localeFromCategoryURL(task.CategoryURL, r.cfg.DefaultLocale)
	homepage := strings.TrimRight(r.cfg.BaseURL, "/") + "/" + locale
	if err := sess.Navigate(ctx, homepage); err != nil {
		return res, fmt.Errorf("load homepage %s: %w", homepage, err)
	}
	if err := r.settle(ctx, rng); err != nil {
		return res, err
	}

	r.recordStep(logger, task, &res, acceptCookies(ctx, sess, r.cfg.StepTimeout))
	r.recordStep(logger, task, &res, setLocation(ctx, sess, task.Location, r.cfg.StepTimeout, rng))

	if err := sess.Navigate(ctx, task.CategoryURL); err != nil {
		return res, fmt.Errorf("load category page: %w", err)
	}
	if err := r.settle(ctx, rng); err != nil {
		return res, err
	}

	r.recordStep(logger, task, &res, applyAllItemsFilter(ctx, sess, r.cfg.StepTimeout, rng))

	stabilizer := &scrollStabilizer{
		maxCycles:    r.cfg.MaxScrollCycles,
		roundsStable: r.cfg.RoundsStable,
		delayMin:     r.cfg.ScrollDelayMin,
		delayMax:     r.cfg.ScrollDelayMax,
		logger:       logger,
	}
	cycles, err := stabilizer.Run(ctx, sess, rng)
	res.ScrollCycles = cycles
	if err != nil {
		return res, fmt.Errorf("stabilize scroll: %w", err)
	}

	capturedAt := r.clock.Now()
	records, err := extractProducts(ctx, sess, task, capturedAt)
	if err != nil {
		return res, fmt.Errorf("extract products: %w", err)
	}
	res.Records = len(records)
	res.Vendor = resolveVendor(ctx, sess, task.CategoryURL, r.cfg.StepTimeout)

	if len(records) == 0 {
		logger.Warn("no products found for combination")
		res.Finished = r.clock.Now()
		return res, nil
	}

	path, err := r.store.Write(ctx, task, res.Vendor, capturedAt, records)
	if err != nil {
		return res, fmt.Errorf("write artifact: %w", err)
	}
	res.ArtifactPath = path
	res.Finished = r.clock.Now()
	logger.Info("task artifact saved",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("scroll_cycles", cycles),
	)
	return res, nil
}

// settle waits the configured delay plus jitter after a navigation.
func (r *Runner) settle(ctx context.Context, rng *rand.Rand) error {
	jitterMax := r.cfg.SettleDelay
	if jitterMax > time.Second {
		jitterMax = time.Second
	}
	return pause(ctx, r.cfg.SettleDelay+jitterUpTo(rng, jitterMax))
}

func (r *Runner) recordStep(logger *zap.Logger, task Task, res *TaskResult, report StepReport) {
	res.Steps = append(res.Steps, report)
	fields := []zap.Field{
		zap.String("step", report.Name),
		zap.String("outcome", string(report.Outcome)),
	}
	if report.Detail != "" {
		fields = append(fields, zap.String("detail", report.Detail))
	}
	logger.Info("session step", fields...)
	if r.emitter != nil {
		r.emitter.Emit(progress.Event{
			TaskID:   progress.UUIDToBytes(task.ID),
			TS:       r.clock.Now(),
			Stage:    progress.StageTaskStep,
			Category: task.CategoryURL,
			Location: task.Location,
			Step:     report.Name,
			Outcome:  string(report.Outcome),
			Note:     report.Detail,
		})
	}
}
