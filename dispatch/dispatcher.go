package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/impact"
)

// UpdateResult is the outcome of one strategy application against one
// module group.
type UpdateResult struct {
	// Type is the module group that was patched.
	Type string `json:"type"`

	// Updates lists one-line descriptions of each applied substitution.
	Updates []string `json:"updates"`

	// Success is false when the strategy failed partway.
	Success bool `json:"success"`
}

// Summary is the final account of one pass.
type Summary struct {
	// ID correlates the summary with its report file and log lines.
	ID string `json:"id"`

	// Timestamp is when dispatch completed.
	Timestamp time.Time `json:"timestamp"`

	// AutomaticUpdates counts the changes applied automatically and
	// successfully.
	AutomaticUpdates int `json:"automatic_updates"`

	// ManualReviewRequired counts the changes routed to a human.
	ManualReviewRequired int `json:"manual_review_required"`

	// Results holds one UpdateResult per automatically processed change.
	Results []UpdateResult `json:"results"`

	// ManualReviewItems holds the flagged changes, including any that
	// failed mechanical application (with Error set).
	ManualReviewItems []detect.ChangeItem `json:"manual_review_items"`

	// Success is true iff every produced result succeeded.
	Success bool `json:"success"`

	// NextSteps recommends what to run after the pass.
	NextSteps []string `json:"next_steps"`
}

// Dispatcher applies mechanical patches per change type. One failing
// strategy never aborts the pass: the failure is attached to its change
// item, the item moves to manual review, and processing continues.
type Dispatcher struct {
	registry Registry
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger falls back to
// slog.Default.
func NewDispatcher(registry Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Apply processes every change not already flagged for manual review and
// assembles the summary. Changes the analysis routed to manual review
// are carried into ManualReviewItems untouched.
func (d *Dispatcher) Apply(ctx context.Context, changes []detect.ChangeItem, analysis *impact.Analysis) *Summary {
	summary := &Summary{
		ID:                uuid.New().String(),
		Results:           []UpdateResult{},
		ManualReviewItems: []detect.ChangeItem{},
		Success:           true,
	}

	// The detector emits at most one item per type per pass, so type
	// identifies a flagged change.
	flagged := map[detect.ChangeType]bool{}
	if analysis != nil {
		for _, item := range analysis.ManualReviewRequired {
			flagged[item.Type] = true
			summary.ManualReviewItems = append(summary.ManualReviewItems, item)
		}
	}

	for _, item := range changes {
		if flagged[item.Type] {
			continue
		}

		strategy, ok := d.registry[item.Type]
		if !ok {
			item.Error = fmt.Sprintf("%v: %s", ErrNoStrategy, item.Type)
			summary.ManualReviewItems = append(summary.ManualReviewItems, item)
			d.logger.Warn("No strategy for change type", slog.String("type", item.Type.String()))
			continue
		}

		updates, err := strategy.Apply(ctx, item)
		if err != nil {
			d.logger.Warn("Strategy failed",
				slog.String("type", item.Type.String()),
				slog.String("target", item.ImpactTarget),
				slog.String("error", err.Error()))
			summary.Results = append(summary.Results, UpdateResult{
				Type:    item.ImpactTarget,
				Updates: updates,
				Success: false,
			})
			item.Error = err.Error()
			summary.ManualReviewItems = append(summary.ManualReviewItems, item)
			continue
		}

		if updates == nil {
			updates = []string{}
		}
		summary.Results = append(summary.Results, UpdateResult{
			Type:    item.ImpactTarget,
			Updates: updates,
			Success: true,
		})
	}

	automatic := 0
	for _, r := range summary.Results {
		if r.Success {
			automatic++
		} else {
			summary.Success = false
		}
	}

	summary.Timestamp = time.Now().UTC()
	summary.AutomaticUpdates = automatic
	summary.ManualReviewRequired = len(summary.ManualReviewItems)
	summary.NextSteps = nextSteps(summary)

	d.logger.Info("Dispatch complete",
		slog.String("summary_id", summary.ID),
		slog.Int("automatic", summary.AutomaticUpdates),
		slog.Int("manual_review", summary.ManualReviewRequired),
		slog.Bool("success", summary.Success))

	return summary
}

// nextSteps always recommends integration validation, plus a
// manual-review pass when anything was flagged.
func nextSteps(summary *Summary) []string {
	steps := []string{"Run the integration validation pass over the generated documentation"}
	if len(summary.ManualReviewItems) > 0 {
		steps = append(steps, fmt.Sprintf("Review %d change(s) flagged for manual attention", len(summary.ManualReviewItems)))
	}
	return steps
}
