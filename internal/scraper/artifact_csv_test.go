package scraper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleRecords(location string) []ProductRecord {
	return []ProductRecord{
		{
			SeenOrder:    0,
			Name:         "Skimmed Milk 1L",
			Quantity:     "1 L",
			Price:        "EGP 45.50",
			OldPrice:     "EGP 60.00",
			ImageURL:     "https://cdn.example.com/milk.jpg",
			OutOfStock:   false,
			SKU:          "MLK-001",
			CategoryURL:  "https://instashop.com/en-eg/client/sarai-market/category/dairy",
			LocationUsed: location,
			Timestamp:    "2025-03-14T09:26:53",
		},
		{
			SeenOrder:    1,
			Name:         "Brown Eggs x10",
			Quantity:     "10 pcs",
			Price:        "EGP 80",
			OutOfStock:   true,
			CategoryURL:  "https://instashop.com/en-eg/client/sarai-market/category/dairy",
			LocationUsed: location,
			Timestamp:    "2025-03-14T09:26:53",
		},
	}
}

func TestCSVStoreRoundtrip(t *testing.T) {
	store, err := NewCSVStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	capturedAt := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	records := sampleRecords("New Cairo")
	task := Task{
		ID:       uuid.MustParse("0195a1b2-0000-7000-8000-000000000000"),
		Location: "New Cairo",
	}

	path, err := store.Write(context.Background(), task, "Sarai Market", capturedAt, records)
	require.NoError(t, err)
	assert.Equal(t, "Sarai_Market__New_Cairo__20250314_092653__0195a1b2.csv", filepath.Base(path))

	got, err := store.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestCSVStoreRefusesEmptyWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir, zap.NewNop())
	require.NoError(t, err)

	task := Task{ID: uuid.New(), Location: "New Cairo"}
	_, err = store.Write(context.Background(), task, "Sarai Market", time.Now(), nil)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "an empty task must leave no artifact behind")
}

func TestCSVStoreReadRejectsForeignColumns(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir, zap.NewNop())
	require.NoError(t, err)

	path := filepath.Join(dir, "bogus.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o600))

	_, err = store.Read(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns")
}

func TestCSVStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	_, err := NewCSVStore(dir, zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
