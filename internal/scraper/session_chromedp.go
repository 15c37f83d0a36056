package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Viewport bounds for session randomization. Uniform viewports across many
// parallel sessions are an easy automation fingerprint.
const (
	viewportWidthMin  = 1200
	viewportWidthMax  = 1600
	viewportHeightMin = 700
	viewportHeightMax = 1000
)

// ChromedpFactory launches one isolated Chrome instance per task.
type ChromedpFactory struct {
	cfg          Config
	logger       *zap.Logger
	hostLimiters sync.Map
}

// NewChromedpFactory creates a factory using the provided configuration.
func NewChromedpFactory(cfg Config, logger *zap.Logger) *ChromedpFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromedpFactory{cfg: cfg, logger: logger}
}

// NewSession starts a fresh browser with a randomized viewport and, when a
// pool is configured, a randomly chosen user agent. Viewport and user agent
// are pure functions of the task-scoped rng.
func (f *ChromedpFactory) NewSession(ctx context.Context, rng *rand.Rand) (Session, error) {
	width := viewportWidthMin + rng.Intn(viewportWidthMax-viewportWidthMin+1)
	height := viewportHeightMin + rng.Intn(viewportHeightMax-viewportHeightMin+1)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(width, height),
	)
	if ua := pickUserAgent(f.cfg.UserAgents, rng); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	f.logger.Debug("browser session started",
		zap.Int("viewport_width", width),
		zap.Int("viewport_height", height),
		zap.Bool("headless", f.cfg.Headless),
	)

	return &chromedpSession{
		factory:       f,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		navTimeout:    f.cfg.NavigationTimeout,
	}, nil
}

func pickUserAgent(pool []string, rng *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}

func (f *ChromedpFactory) waitHostBudget(ctx context.Context, rawURL string) error {
	if f.cfg.HomepageQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse navigation url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := f.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.cfg.HomepageQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

// chromedpSession drives one Chrome instance. All actions run against the
// session's single tab.
type chromedpSession struct {
	factory       *ChromedpFactory
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	navTimeout    time.Duration
}

// Navigate loads a URL and waits for the body to be ready, pacing requests
// per host so parallel sessions do not stampede the platform.
func (s *chromedpSession) Navigate(ctx context.Context, rawURL string) error {
	if err := s.factory.waitHostBudget(ctx, rawURL); err != nil {
		return fmt.Errorf("navigation rate limit: %w", err)
	}
	runCtx, cancel := s.stepContext(ctx, s.navTimeout)
	defer cancel()
	tasks := chromedp.Tasks{
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, tasks); err != nil {
		return fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return nil
}

// IsVisible probes for a visible element; probe errors count as not visible.
func (s *chromedpSession) IsVisible(ctx context.Context, selector string, timeout time.Duration) bool {
	runCtx, cancel := s.stepContext(ctx, timeout)
	defer cancel()
	err := chromedp.Run(runCtx, chromedp.WaitVisible(selector, selectorOpt(selector)))
	return err == nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	runCtx, cancel := s.stepContext(ctx, s.navTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Click(selector, selectorOpt(selector))); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Fill(ctx context.Context, selector, value string) error {
	runCtx, cancel := s.stepContext(ctx, s.navTimeout)
	defer cancel()
	tasks := chromedp.Tasks{
		chromedp.Clear(selector, selectorOpt(selector)),
		chromedp.SendKeys(selector, value, selectorOpt(selector)),
	}
	if err := chromedp.Run(runCtx, tasks); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Press(ctx context.Context, selector, key string) error {
	runCtx, cancel := s.stepContext(ctx, s.navTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.SendKeys(selector, key, selectorOpt(selector))); err != nil {
		return fmt.Errorf("press key on %s: %w", selector, err)
	}
	return nil
}

func (s *chromedpSession) Evaluate(ctx context.Context, js string, out any) error {
	runCtx, cancel := s.stepContext(ctx, s.navTimeout)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Evaluate(js, out)); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

// Close tears down the browser and allocator contexts. Idempotent.
func (s *chromedpSession) Close(_ context.Context) error {
	s.browserCancel()
	s.allocCancel()
	return nil
}

// stepContext derives a timeout-bounded context from the browser context and
// forwards cancellation from the caller's context.
func (s *chromedpSession) stepContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	stop := forwardCancel(parent, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func selectorOpt(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
