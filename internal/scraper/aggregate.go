package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Workbook sheet names for the combined output.
const (
	SheetAllData = "All_Data"
	SheetSummary = "Summary_by_Location"
)

// ErrNothingToCombine means every artifact was unreadable or empty.
var ErrNothingToCombine = errors.New("no readable artifact data to combine")

// CombinedRow is one deduplicated record with derived numeric columns.
// The OK flags distinguish "no value" from zero.
type CombinedRow struct {
	ProductRecord
	PriceNumeric    float64
	PriceOK         bool
	OldPriceNumeric float64
	OldPriceOK      bool
	Discount        float64
	DiscountOK      bool
}

// LocationSummary aggregates one distinct location of the combined dataset.
type LocationSummary struct {
	Location      string
	TotalProducts int
	UniqueNames   int
	Discounted    int
	OutOfStock    int
}

// CombineStats reports what the aggregation pass did.
type CombineStats struct {
	ArtifactsRead    int
	ArtifactsSkipped int
	RawRecords       int
	Rows             int
}

// Aggregator merges per-task artifacts into the combined workbook.
type Aggregator struct {
	store  ArtifactStore
	logger *zap.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(store ArtifactStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{store: store, logger: logger}
}

// Combine reads the artifacts, deduplicates, derives price and discount
// columns, and writes the combined workbook to outPath. An unreadable
// artifact is skipped, not fatal; a failed summary sheet is logged, not
// fatal.
func (a *Aggregator) Combine(ctx context.Context, artifactPaths []string, outPath string) (CombineStats, error) {
	stats := CombineStats{}

	var records []ProductRecord
	for _, path := range artifactPaths {
		recs, err := a.store.Read(ctx, path)
		if err != nil {
			stats.ArtifactsSkipped++
			a.logger.Warn("skipping unreadable artifact", zap.String("path", path), zap.Error(err))
			continue
		}
		stats.ArtifactsRead++
		records = append(records, recs...)
	}
	stats.RawRecords = len(records)
	if len(records) == 0 {
		return stats, ErrNothingToCombine
	}

	rows := DeriveColumns(Dedup(records))
	stats.Rows = len(rows)

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // best-effort close after save

	if err := writeAllDataSheet(f, rows); err != nil {
		return stats, fmt.Errorf("write %s sheet: %w", SheetAllData, err)
	}
	if err := writeSummarySheet(f, SummarizeByLocation(rows)); err != nil {
		a.logger.Warn("summary sheet generation failed; combined data is still valid", zap.Error(err))
	}
	if err := f.SaveAs(outPath); err != nil {
		return stats, fmt.Errorf("save combined workbook %s: %w", outPath, err)
	}

	a.logger.Info("combined workbook written",
		zap.String("path", outPath),
		zap.Int("rows", stats.Rows),
		zap.Int("artifacts_read", stats.ArtifactsRead),
		zap.Int("artifacts_skipped", stats.ArtifactsSkipped),
	)
	return stats, nil
}

type dedupKey struct {
	categoryURL string
	location    string
	name        string
	quantity    string
	price       string
}

// Dedup collapses exact repeats on (category_url, location_used, name,
// quantity, price), keeping the first occurrence. Distinct SKUs or variants
// that differ in any key field survive.
func Dedup(records []ProductRecord) []ProductRecord {
	seen := make(map[dedupKey]struct{}, len(records))
	out := make([]ProductRecord, 0, len(records))
	for _, r := range records {
		key := dedupKey{
			categoryURL: r.CategoryURL,
			location:    r.LocationUsed,
			name:        r.Name,
			quantity:    r.Quantity,
			price:       r.Price,
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// DeriveColumns computes numeric prices and the guarded discount percentage.
func DeriveColumns(records []ProductRecord) []CombinedRow {
	rows := make([]CombinedRow, 0, len(records))
	for _, r := range records {
		row := CombinedRow{ProductRecord: r}
		row.PriceNumeric, row.PriceOK = ParsePrice(r.Price)
		row.OldPriceNumeric, row.OldPriceOK = ParsePrice(r.OldPrice)
		row.Discount, row.DiscountOK = DiscountPercent(
			row.PriceNumeric, row.PriceOK,
			row.OldPriceNumeric, row.OldPriceOK,
		)
		rows = append(rows, row)
	}
	return rows
}

// SummarizeByLocation produces one summary per distinct location, ordered by
// location name.
func SummarizeByLocation(rows []CombinedRow) []LocationSummary {
	type acc struct {
		total      int
		names      map[string]struct{}
		discounted int
		outOfStock int
	}
	byLoc := make(map[string]*acc)
	for _, row := range rows {
		a := byLoc[row.LocationUsed]
		if a == nil {
			a = &acc{names: make(map[string]struct{})}
			byLoc[row.LocationUsed] = a
		}
		a.total++
		a.names[row.Name] = struct{}{}
		if row.DiscountOK {
			a.discounted++
		}
		if row.OutOfStock {
			a.outOfStock++
		}
	}

	locations := make([]string, 0, len(byLoc))
	for loc := range byLoc {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	summaries := make([]LocationSummary, 0, len(locations))
	for _, loc := range locations {
		a := byLoc[loc]
		summaries = append(summaries, LocationSummary{
			Location:      loc,
			TotalProducts: a.total,
			UniqueNames:   len(a.names),
			Discounted:    a.discounted,
			OutOfStock:    a.outOfStock,
		})
	}
	return summaries
}

func writeAllDataSheet(f *excelize.File, rows []CombinedRow) error {
	if err := f.SetSheetName(f.GetSheetName(0), SheetAllData); err != nil {
		return fmt.Errorf("rename data sheet: %w", err)
	}

	header := append(append([]any{}, toAnySlice(artifactHeader)...),
		"price_numeric", "old_price_numeric", "discount_percent")
	if err := f.SetSheetRow(SheetAllData, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cells := []any{
			row.SeenOrder,
			row.Name,
			row.Quantity,
			row.Price,
			row.OldPrice,
			row.ImageURL,
			row.OutOfStock,
			row.SKU,
			row.CategoryURL,
			row.LocationUsed,
			row.Timestamp,
			numericCell(row.PriceNumeric, row.PriceOK),
			numericCell(row.OldPriceNumeric, row.OldPriceOK),
			numericCell(row.Discount, row.DiscountOK),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row coordinate: %w", err)
		}
		if err := f.SetSheetRow(SheetAllData, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, summaries []LocationSummary) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	header := []any{"location_used", "total_products", "unique_names", "discounted_items", "out_of_stock"}
	if err := f.SetSheetRow(SheetSummary, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for i, s := range summaries {
		cells := []any{s.Location, s.TotalProducts, s.UniqueNames, s.Discounted, s.OutOfStock}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("summary row coordinate: %w", err)
		}
		if err := f.SetSheetRow(SheetSummary, cell, &cells); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+2, err)
		}
	}
	return nil
}

// numericCell renders "no value" as an empty cell rather than zero.
func numericCell(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
