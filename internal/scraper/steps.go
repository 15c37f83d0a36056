package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp/kb"
)

// Step names reported in logs and progress events.
const (
	StepCookieConsent = "cookie_consent"
	StepLocationSet   = "location_set"
	StepFilterApplied = "filter_applied"
)

// Candidate selectors for the platform's UI affordances. These are adapter
// details: when the markup changes, only this block needs updating.
var (
	cookieConsentSelectors = []string{
		"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
		"button#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
	}
	addressDisplaySelector = "div.mat-ripple.address.desktopWidth"
	addressConfirmSelector = "button.btn.appearance-filled"
	placeSearchSelector    = "input[placeholder='Search for a place']"
	allItemsFilterXPaths   = []string{
		"//label[.//span[normalize-space()='All Items']]",
		"//span[normalize-space()='All Items']",
	}
)

// acceptCookies probes the cookie-consent selectors and clicks the first one
// visible. Missing banners and probe errors are both fine.
func acceptCookies(ctx context.Context, sess Session, timeout time.Duration) StepReport {
	for _, sel := range cookieConsentSelectors {
		if !sess.IsVisible(ctx, sel, timeout) {
			continue
		}
		if err := sess.Click(ctx, sel); err != nil {
			return StepReport{Name: StepCookieConsent, Outcome: StepFailedIgnored, Detail: err.Error()}
		}
		if err := pause(ctx, time.Second); err != nil {
			return StepReport{Name: StepCookieConsent, Outcome: StepFailedIgnored, Detail: err.Error()}
		}
		return StepReport{Name: StepCookieConsent, Outcome: StepSucceeded}
	}
	return StepReport{Name: StepCookieConsent, Outcome: StepSkipped}
}

// setLocation walks the address-entry flow: open the address affordance,
// type the target location, then confirm with the platform's key sequence
// (down-arrow then two confirmations). Every sub-step is optional; whatever
// location state results is what the session proceeds with.
func setLocation(ctx context.Context, sess Session, location string, timeout time.Duration, rng *rand.Rand) StepReport {
	fail := func(err error) StepReport {
		return StepReport{Name: StepLocationSet, Outcome: StepFailedIgnored, Detail: err.Error()}
	}

	if sess.IsVisible(ctx, addressDisplaySelector, timeout) {
		if err := sess.Click(ctx, addressDisplaySelector); err != nil {
			return fail(err)
		}
		if err := pause(ctx, time.Second); err != nil {
			return fail(err)
		}
	}
	if sess.IsVisible(ctx, addressConfirmSelector, timeout) {
		if err := sess.Click(ctx, addressConfirmSelector); err != nil {
			return fail(err)
		}
		if err := pause(ctx, time.Second); err != nil {
			return fail(err)
		}
	}

	if !sess.IsVisible(ctx, placeSearchSelector, timeout+time.Second) {
		return StepReport{Name: StepLocationSet, Outcome: StepSkipped, Detail: "place search input not found"}
	}
	if err := sess.Fill(ctx, placeSearchSelector, location); err != nil {
		return fail(err)
	}
	if err := pause(ctx, time.Second+jitterUpTo(rng, time.Second)); err != nil {
		return fail(err)
	}

	confirm := []struct {
		key   string
		delay time.Duration
	}{
		{kb.ArrowDown, 500 * time.Millisecond},
		{kb.Enter, 500 * time.Millisecond},
		{kb.Enter, 3*time.Second + jitterUpTo(rng, time.Second)},
	}
	for _, c := range confirm {
		if err := sess.Press(ctx, placeSearchSelector, c.key); err != nil {
			return fail(err)
		}
		if err := pause(ctx, c.delay); err != nil {
			return fail(err)
		}
	}
	return StepReport{Name: StepLocationSet, Outcome: StepSucceeded}
}

// applyAllItemsFilter clicks the "All Items" filter when one is rendered so
// the category page shows the unfiltered product list.
func applyAllItemsFilter(ctx context.Context, sess Session, timeout time.Duration, rng *rand.Rand) StepReport {
	for _, xp := range allItemsFilterXPaths {
		if !sess.IsVisible(ctx, xp, timeout) {
			continue
		}
		if err := sess.Click(ctx, xp); err != nil {
			return StepReport{Name: StepFilterApplied, Outcome: StepFailedIgnored, Detail: err.Error()}
		}
		if err := pause(ctx, time.Second+jitterUpTo(rng, time.Second)); err != nil {
			return StepReport{Name: StepFilterApplied, Outcome: StepFailedIgnored, Detail: err.Error()}
		}
		return StepReport{Name: StepFilterApplied, Outcome: StepSucceeded}
	}
	return StepReport{Name: StepFilterApplied, Outcome: StepSkipped}
}

// pause sleeps for d unless the context ends first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pause interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// jitterUpTo draws a random duration in [0, max) from the task-scoped rng.
func jitterUpTo(rng *rand.Rand, max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}
