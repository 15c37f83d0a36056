package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight);`
	// Small upward scroll; some lazy-load implementations only fire on a
	// scroll-direction change.
	scrollNudgeJS = `window.scrollBy(0, -Math.floor(window.innerHeight * 0.4));`
	countCardsJS  = `Array.from(document.querySelectorAll('` + productCardSelector + `')).length`
)

// scrollStabilizer drives repeated scroll-and-wait cycles until the rendered
// card count stops growing. The page gives no definitive "all loaded" signal,
// so stability over consecutive cycles stands in for one, with maxCycles as
// the safety bound.
type scrollStabilizer struct {
	maxCycles    int
	roundsStable int
	delayMin     float64 // seconds
	delayMax     float64 // seconds
	logger       *zap.Logger
}

// Run returns the number of cycles executed. Reaching the cycle cap and
// reaching stability are the same outcome for callers.
func (s *scrollStabilizer) Run(ctx context.Context, sess Session, rng *rand.Rand) (int, error) {
	lastCount := 0
	stableRounds := 0

	for cycle := 1; cycle <= s.maxCycles; cycle++ {
		if err := sess.Evaluate(ctx, scrollToBottomJS, nil); err != nil {
			return cycle, fmt.Errorf("scroll cycle %d: %w", cycle, err)
		}

		delay := s.delayMin + rng.Float64()*(s.delayMax-s.delayMin)
		if err := pause(ctx, time.Duration(delay*float64(time.Second))); err != nil {
			return cycle, err
		}

		var count int
		if err := sess.Evaluate(ctx, countCardsJS, &count); err != nil {
			return cycle, fmt.Errorf("count cards on cycle %d: %w", cycle, err)
		}
		s.logger.Debug("scroll cycle",
			zap.Int("cycle", cycle),
			zap.Int("cards", count),
			zap.Int("stable_rounds", stableRounds),
		)

		if count == lastCount {
			stableRounds++
		} else {
			stableRounds = 0
			lastCount = count
		}

		if stableRounds == 1 {
			if err := sess.Evaluate(ctx, scrollNudgeJS, nil); err != nil {
				return cycle, fmt.Errorf("nudge scroll on cycle %d: %w", cycle, err)
			}
		}

		if stableRounds >= s.roundsStable {
			s.logger.Debug("card count stabilized",
				zap.Int("cycle", cycle),
				zap.Int("cards", count),
			)
			return cycle, nil
		}
	}
	return s.maxCycles, nil
}
