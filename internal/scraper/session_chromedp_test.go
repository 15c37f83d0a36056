package scraper

import (
	"context"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSelectorOpt(t *testing.T) {
	bySearch := reflect.ValueOf(chromedp.QueryOption(chromedp.BySearch)).Pointer()
	byQuery := reflect.ValueOf(chromedp.QueryOption(chromedp.ByQuery)).Pointer()

	assert.Equal(t, bySearch,
		reflect.ValueOf(selectorOpt("//span[normalize-space()='All Items']")).Pointer())
	assert.Equal(t, byQuery,
		reflect.ValueOf(selectorOpt("div.product.mb-4.ng-star-inserted")).Pointer())
}

func TestPickUserAgent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	assert.Empty(t, pickUserAgent(nil, rng))

	pool := []string{"ua-one", "ua-two", "ua-three"}
	for i := 0; i < 20; i++ {
		assert.Contains(t, pool, pickUserAgent(pool, rng))
	}
}

func TestWaitHostBudgetDisabled(t *testing.T) {
	cfg := testConfig("out")
	cfg.HomepageQPS = 0
	f := NewChromedpFactory(cfg, zap.NewNop())

	start := time.Now()
	require.NoError(t, f.waitHostBudget(context.Background(), "https://instashop.com/en-eg"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitHostBudgetPacesRepeatNavigation(t *testing.T) {
	cfg := testConfig("out")
	cfg.HomepageQPS = 20 // 50ms between navigations per host
	f := NewChromedpFactory(cfg, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, f.waitHostBudget(ctx, "https://instashop.com/a"))
	start := time.Now()
	require.NoError(t, f.waitHostBudget(ctx, "https://instashop.com/b"))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	// A different host has its own budget and is not delayed.
	start = time.Now()
	require.NoError(t, f.waitHostBudget(ctx, "https://other.example.com/"))
	assert.Less(t, time.Since(start), 30*time.Millisecond)
}

func TestWaitHostBudgetHonorsCancellation(t *testing.T) {
	cfg := testConfig("out")
	cfg.HomepageQPS = 0.001
	f := NewChromedpFactory(cfg, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, f.waitHostBudget(ctx, "https://instashop.com/a"))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	err := f.waitHostBudget(canceled, "https://instashop.com/b")
	require.Error(t, err)
}

func TestForwardCancelPropagates(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	child, childCancel := context.WithCancel(context.Background())
	defer childCancel()

	stop := forwardCancel(parent, childCancel)
	defer stop()

	parentCancel()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not canceled")
	}
}
