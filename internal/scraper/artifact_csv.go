package scraper

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var artifactHeader = []string{
	"seen_order", "name", "quantity", "price", "old_price",
	"image_url", "out_of_stock", "sku",
	"category_url", "location_used", "timestamp",
}

// CSVStore persists per-task record tables as CSV files in a single
// directory. Filenames embed sanitized vendor/location, the capture
// timestamp, and a task id fragment, so concurrent writers never collide.
type CSVStore struct {
	dir    string
	logger *zap.Logger
}

// NewCSVStore creates the store, ensuring the directory exists.
func NewCSVStore(dir string, logger *zap.Logger) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStore{dir: dir, logger: logger}, nil
}

// Dir returns the artifact directory.
func (s *CSVStore) Dir() string {
	return s.dir
}

// Write saves one task's records and returns the artifact path.
func (s *CSVStore) Write(ctx context.Context, task Task, vendor string, capturedAt time.Time, records []ProductRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("refusing to write empty artifact for %s/%s", vendor, task.Location)
	}

	path := filepath.Join(s.dir, ArtifactFilename(vendor, task.Location, capturedAt, task.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(artifactHeader); err != nil {
		f.Close() //nolint:errcheck // already failing
		return "", fmt.Errorf("write artifact header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.SeenOrder),
			r.Name,
			r.Quantity,
			r.Price,
			r.OldPrice,
			r.ImageURL,
			strconv.FormatBool(r.OutOfStock),
			r.SKU,
			r.CategoryURL,
			r.LocationUsed,
			r.Timestamp,
		}
		if err := w.Write(row); err != nil {
			f.Close() //nolint:errcheck // already failing
			return "", fmt.Errorf("write artifact row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close() //nolint:errcheck // already failing
		return "", fmt.Errorf("flush artifact %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close artifact %s: %w", path, err)
	}

	s.logger.Debug("artifact written", zap.String("path", path), zap.Int("records", len(records)))
	return path, nil
}

// Read loads one artifact back into records. Lenient on numeric fields: a
// malformed seen_order or flag yields the zero value, not an error.
func (s *CSVStore) Read(ctx context.Context, path string) ([]ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("artifact %s has no header", path)
	}
	if len(rows[0]) != len(artifactHeader) {
		return nil, fmt.Errorf("artifact %s has %d columns, want %d", path, len(rows[0]), len(artifactHeader))
	}

	records := make([]ProductRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		seenOrder, _ := strconv.Atoi(row[0])
		outOfStock, _ := strconv.ParseBool(row[6])
		records = append(records, ProductRecord{
			SeenOrder:    seenOrder,
			Name:         row[1],
			Quantity:     row[2],
			Price:        row[3],
			OldPrice:     row[4],
			ImageURL:     row[5],
			OutOfStock:   outOfStock,
			SKU:          row[7],
			CategoryURL:  row[8],
			LocationUsed: row[9],
			Timestamp:    row[10],
		})
	}
	return records, nil
}
