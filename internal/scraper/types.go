// Core types shared across the scraping pipeline.
package scraper

import (
	"time"

	"github.com/google/uuid"
)

// Task is one (category URL, delivery location) unit of scraping work. The
// pair is the task's identity; ID exists so logs and results can reference a
// specific run of that pair.
type Task struct {
	ID          uuid.UUID
	CategoryURL string
	Location    string
}

// RawCard is the structured result of the product-card DOM query, one entry
// per rendered card in document order.
type RawCard struct {
	SeenOrder  int    `json:"seen_order"`
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	Price      string `json:"price"`
	OldPrice   string `json:"old_price"`
	ImageURL   string `json:"image_url"`
	OutOfStock bool   `json:"out_of_stock"`
	SKU        string `json:"sku"`
}

// ProductRecord is one extracted product, immutable after creation.
// SeenOrder is the 1-based rendering order at extraction time and carries no
// stability guarantee across runs.
type ProductRecord struct {
	SeenOrder    int
	Name         string
	Quantity     string
	Price        string
	OldPrice     string
	ImageURL     string
	OutOfStock   bool
	SKU          string
	CategoryURL  string
	LocationUsed string
	Timestamp    string
}

// StepOutcome classifies how a best-effort session step ended.
type StepOutcome string

// Tri-state outcomes for soft steps. Hard steps never produce an outcome;
// their errors abort the task instead.
const (
	StepSucceeded     StepOutcome = "succeeded"
	StepSkipped       StepOutcome = "skipped-not-found"
	StepFailedIgnored StepOutcome = "failed-ignored"
)

// StepReport records the outcome of one named session step.
type StepReport struct {
	Name    string
	Outcome StepOutcome
	Detail  string
}

// TaskResult is what a task run hands back to the orchestrator.
type TaskResult struct {
	Task         Task
	Vendor       string
	ArtifactPath string // empty when the task yielded zero records
	Records      int
	ScrollCycles int
	Steps        []StepReport
	Started      time.Time
	Finished     time.Time
}
