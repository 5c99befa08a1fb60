// Package impact classifies detected changes: which downstream module
// groups they touch, how much effort they imply, and which need a human.
package impact

import (
	"fmt"
	"sort"

	"github.com/c360studio/specsync/detect"
)

// manualReviewDetailLimit is the detail count above which a
// high-severity change always routes to manual review.
const manualReviewDetailLimit = 5

// Effort buckets for the severity-weighted sum.
const (
	lowEffortMax    = 3
	mediumEffortMax = 10
)

// sensitiveContentRule is the content rule whose wording a human must
// approve; mechanical substitution of prompt examples is off the table.
const sensitiveContentRule = "example-prompts"

// Analysis maps a change set to affected modules, update actions,
// manual-review needs, and estimated effort.
type Analysis struct {
	// ImpactedModules lists the affected module groups, sorted and
	// de-duplicated.
	ImpactedModules []string `json:"impacted_modules"`

	// UpdateActions lists one human-readable action per change.
	UpdateActions []string `json:"update_actions"`

	// ManualReviewRequired lists the changes a human must look at.
	ManualReviewRequired []detect.ChangeItem `json:"manual_review_required"`

	// EstimatedEffort buckets the severity-weighted sum over all changes.
	EstimatedEffort detect.Severity `json:"estimated_effort"`

	// AutoUpdateable is true iff nothing requires manual review.
	AutoUpdateable bool `json:"auto_updateable"`
}

// Analyze classifies the change set against the fixed policy tables.
func Analyze(changes []detect.ChangeItem) *Analysis {
	analysis := &Analysis{
		ImpactedModules:      []string{},
		UpdateActions:        []string{},
		ManualReviewRequired: []detect.ChangeItem{},
	}

	modules := map[string]bool{}
	for _, item := range changes {
		target := item.ImpactTarget
		if target == "" {
			target = item.Type.ImpactTarget()
		}
		if target != "" && !modules[target] {
			modules[target] = true
			analysis.ImpactedModules = append(analysis.ImpactedModules, target)
		}

		analysis.UpdateActions = append(analysis.UpdateActions, updateAction(item, target))

		if needsManualReview(item) {
			analysis.ManualReviewRequired = append(analysis.ManualReviewRequired, item)
		}
	}
	sort.Strings(analysis.ImpactedModules)

	analysis.EstimatedEffort = estimateEffort(changes)
	analysis.AutoUpdateable = len(analysis.ManualReviewRequired) == 0

	return analysis
}

// needsManualReview applies the routing criteria: sensitive content
// rules, removals from the output structure, and large high-severity
// change sets.
func needsManualReview(item detect.ChangeItem) bool {
	if item.Type == detect.ChangeContentRules && hasDetailKey(item, sensitiveContentRule) {
		return true
	}
	if item.Type == detect.ChangeOutputStructure && hasRemovedDetail(item) {
		return true
	}
	if item.Severity == detect.SeverityHigh && len(item.Details) > manualReviewDetailLimit {
		return true
	}
	return false
}

func hasDetailKey(item detect.ChangeItem, key string) bool {
	for _, d := range item.Details {
		if d.Key == key {
			return true
		}
	}
	return false
}

func hasRemovedDetail(item detect.ChangeItem) bool {
	for _, d := range item.Details {
		if d.Kind == detect.DiffRemoved {
			return true
		}
	}
	return false
}

// estimateEffort sums the severity weights over all changes and buckets
// the total.
func estimateEffort(changes []detect.ChangeItem) detect.Severity {
	total := 0
	for _, item := range changes {
		total += item.Severity.Weight()
	}
	switch {
	case total <= lowEffortMax:
		return detect.SeverityLow
	case total <= mediumEffortMax:
		return detect.SeverityMedium
	default:
		return detect.SeverityHigh
	}
}

func updateAction(item detect.ChangeItem, target string) string {
	return fmt.Sprintf("Update %s: %s", target, item.Description)
}
