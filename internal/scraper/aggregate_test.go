package scraper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func combinedRecord(name, location, price, oldPrice string) ProductRecord {
	return ProductRecord{
		SeenOrder:    1,
		Name:         name,
		Quantity:     "1 pc",
		Price:        price,
		OldPrice:     oldPrice,
		CategoryURL:  "https://instashop.com/en-eg/client/spinneys/category/9",
		LocationUsed: location,
		Timestamp:    "2025-03-14T09:26:53",
	}
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	a := combinedRecord("Milk", "New Cairo", "EGP 45.50", "")
	a.SKU = "first"
	b := combinedRecord("Milk", "New Cairo", "EGP 45.50", "")
	b.SKU = "second"
	differentPrice := combinedRecord("Milk", "New Cairo", "EGP 50.00", "")
	differentLocation := combinedRecord("Milk", "Maadi", "EGP 45.50", "")

	out := Dedup([]ProductRecord{a, b, differentPrice, differentLocation})
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].SKU)
}

func TestDedupIsIdempotent(t *testing.T) {
	records := []ProductRecord{
		combinedRecord("Milk", "New Cairo", "EGP 45.50", ""),
		combinedRecord("Milk", "New Cairo", "EGP 45.50", ""),
		combinedRecord("Eggs", "New Cairo", "EGP 80", ""),
	}
	once := Dedup(records)
	twice := Dedup(once)
	assert.Equal(t, once, twice)
}

func TestDeriveColumns(t *testing.T) {
	rows := DeriveColumns([]ProductRecord{
		combinedRecord("Milk", "New Cairo", "EGP 75", "EGP 100"),
		combinedRecord("Eggs", "New Cairo", "EGP 80", ""),
		combinedRecord("Ghost", "New Cairo", "—", ""),
	})
	require.Len(t, rows, 3)

	assert.True(t, rows[0].PriceOK)
	assert.InDelta(t, 75.0, rows[0].PriceNumeric, 1e-9)
	assert.True(t, rows[0].DiscountOK)
	assert.InDelta(t, 25.0, rows[0].Discount, 1e-9)

	assert.True(t, rows[1].PriceOK)
	assert.False(t, rows[1].OldPriceOK)
	assert.False(t, rows[1].DiscountOK)

	assert.False(t, rows[2].PriceOK)
	assert.False(t, rows[2].DiscountOK)
}

func TestSummarizeByLocation(t *testing.T) {
	rows := DeriveColumns([]ProductRecord{
		combinedRecord("Milk", "New Cairo", "EGP 75", "EGP 100"),
		combinedRecord("Eggs", "New Cairo", "EGP 80", ""),
		combinedRecord("Milk", "Maadi", "EGP 78", ""),
	})
	rows[1].OutOfStock = true

	summaries := SummarizeByLocation(rows)
	require.Len(t, summaries, 2)

	// Ordered by location name.
	assert.Equal(t, "Maadi", summaries[0].Location)
	assert.Equal(t, 1, summaries[0].TotalProducts)

	nc := summaries[1]
	assert.Equal(t, "New Cairo", nc.Location)
	assert.Equal(t, 2, nc.TotalProducts)
	assert.Equal(t, 2, nc.UniqueNames)
	assert.Equal(t, 1, nc.Discounted)
	assert.Equal(t, 1, nc.OutOfStock)
}

func TestCombineEndToEnd(t *testing.T) {
	store, err := NewCSVStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()
	capturedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	var paths []string
	// Two locations, overlapping records between artifacts to exercise dedup.
	p1, err := store.Write(ctx, Task{ID: uuid.New(), Location: "New Cairo"}, "Spinneys", capturedAt, []ProductRecord{
		combinedRecord("Milk", "New Cairo", "EGP 75", "EGP 100"),
		combinedRecord("Eggs", "New Cairo", "EGP 80", ""),
	})
	require.NoError(t, err)
	p2, err := store.Write(ctx, Task{ID: uuid.New(), Location: "Maadi"}, "Spinneys", capturedAt.Add(time.Minute), []ProductRecord{
		combinedRecord("Milk", "Maadi", "EGP 78", ""),
		combinedRecord("Milk", "Maadi", "EGP 78", ""), // duplicate within artifact
	})
	require.NoError(t, err)
	paths = append(paths, p1, p2)

	outPath := filepath.Join(t.TempDir(), "combined.xlsx")
	stats, err := NewAggregator(store, zap.NewNop()).Combine(ctx, paths, outPath)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ArtifactsRead)
	assert.Equal(t, 4, stats.RawRecords)
	assert.Equal(t, 3, stats.Rows)

	f, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck // read-only handle

	dataRows, err := f.GetRows(SheetAllData)
	require.NoError(t, err)
	assert.Len(t, dataRows, 4) // header + 3 data rows

	summaryRows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	require.Len(t, summaryRows, 3) // header + 2 locations
	assert.Equal(t, "Maadi", summaryRows[1][0])
	assert.Equal(t, "New Cairo", summaryRows[2][0])
}

func TestCombineSkipsUnreadableArtifacts(t *testing.T) {
	store, err := NewCSVStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Write(ctx, Task{ID: uuid.New(), Location: "Maadi"}, "Spinneys", time.Now(), []ProductRecord{
		combinedRecord("Milk", "Maadi", "EGP 78", ""),
	})
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "combined.xlsx")
	stats, err := NewAggregator(store, zap.NewNop()).Combine(ctx,
		[]string{"/nonexistent/ghost.csv", path}, outPath)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ArtifactsSkipped)
	assert.Equal(t, 1, stats.ArtifactsRead)
	assert.Equal(t, 1, stats.Rows)
}

func TestCombineNothingReadable(t *testing.T) {
	store, err := NewCSVStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	outPath := filepath.Join(t.TempDir(), "combined.xlsx")
	_, err = NewAggregator(store, zap.NewNop()).Combine(context.Background(),
		[]string{"/nonexistent/ghost.csv"}, outPath)
	assert.ErrorIs(t, err, ErrNothingToCombine)
}
