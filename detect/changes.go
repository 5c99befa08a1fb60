// Package detect computes fingerprint-based change detection and
// structural diffing between parsed spec configurations.
package detect

import "fmt"

// ChangeType classifies which tracked dimension of the spec a change
// touches.
type ChangeType string

const (
	// ChangeSources covers external source references.
	ChangeSources ChangeType = "sources"
	// ChangeContentRules covers the named content rules.
	ChangeContentRules ChangeType = "content-rules"
	// ChangeValidationRules covers the named quality checks.
	ChangeValidationRules ChangeType = "validation-rules"
	// ChangeOutputStructure covers file generation, templates, and
	// navigation.
	ChangeOutputStructure ChangeType = "output-structure"
	// ChangeTemplates covers template-only change items. The detector
	// surfaces template keys through output-structure; this type exists
	// for items raised outside detection.
	ChangeTemplates ChangeType = "templates"
)

// String returns the string representation of the change type.
func (t ChangeType) String() string {
	return string(t)
}

// IsValid returns true if the change type is known.
func (t ChangeType) IsValid() bool {
	switch t {
	case ChangeSources, ChangeContentRules, ChangeValidationRules,
		ChangeOutputStructure, ChangeTemplates:
		return true
	default:
		return false
	}
}

// impactTargets maps each change type to the downstream module group it
// patches.
var impactTargets = map[ChangeType]string{
	ChangeSources:         "data-extractors",
	ChangeContentRules:    "content-builders",
	ChangeValidationRules: "quality-controllers",
	ChangeOutputStructure: "file-generators",
	ChangeTemplates:       "template-processors",
}

// ImpactTarget returns the downstream module group patched for this
// change type.
func (t ChangeType) ImpactTarget() string {
	return impactTargets[t]
}

// severityByType fixes each change type's severity. Severity is a pure
// function of type, never of diff magnitude.
var severityByType = map[ChangeType]Severity{
	ChangeContentRules:    SeverityHigh,
	ChangeOutputStructure: SeverityHigh,
	ChangeSources:         SeverityMedium,
	ChangeValidationRules: SeverityMedium,
	ChangeTemplates:       SeverityMedium,
}

// Severity returns the fixed severity for this change type.
func (t ChangeType) Severity() Severity {
	return severityByType[t]
}

// typeLabels give each change type a human-readable name for
// descriptions and reports.
var typeLabels = map[ChangeType]string{
	ChangeSources:         "Source references",
	ChangeContentRules:    "Content rules",
	ChangeValidationRules: "Validation rules",
	ChangeOutputStructure: "Output structure",
	ChangeTemplates:       "Templates",
}

// Label returns the human-readable name for this change type.
func (t ChangeType) Label() string {
	if label, ok := typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// Severity grades a change's review weight.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity is known.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	default:
		return false
	}
}

// Weight returns the effort weight used for estimation.
func (s Severity) Weight() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 5
	default:
		return 0
	}
}

// DiffKind classifies one key-level delta.
type DiffKind string

const (
	DiffAdded    DiffKind = "added"
	DiffRemoved  DiffKind = "removed"
	DiffModified DiffKind = "modified"
)

// String returns the string representation of the diff kind.
func (k DiffKind) String() string {
	return string(k)
}

// Difference is one key-level delta between two config snapshots.
type Difference struct {
	// Key is the configuration key that differs.
	Key string `json:"key"`

	// Kind is added, removed, or modified.
	Kind DiffKind `json:"kind"`

	// OldValue is set for removed and modified keys.
	OldValue string `json:"old_value,omitempty"`

	// NewValue is set for added and modified keys.
	NewValue string `json:"new_value,omitempty"`
}

// ChangeItem is one classified structural change in a tracked dimension.
// The detector emits at most one per dimension per pass, carrying the
// full difference list.
type ChangeItem struct {
	// Type is the tracked dimension that changed.
	Type ChangeType `json:"type"`

	// Description summarizes the change for humans.
	Description string `json:"description"`

	// ImpactTarget is the downstream module group this change patches.
	ImpactTarget string `json:"impact_target"`

	// Severity is fixed by Type.
	Severity Severity `json:"severity"`

	// Details lists every key-level difference in the dimension.
	Details []Difference `json:"details"`

	// Error carries a strategy failure message when dispatch could not
	// apply this change; empty otherwise.
	Error string `json:"error,omitempty"`
}

// describeChange builds the one-line human description for a change.
func describeChange(t ChangeType, diffs []Difference) string {
	var added, removed, modified int
	for _, d := range diffs {
		switch d.Kind {
		case DiffAdded:
			added++
		case DiffRemoved:
			removed++
		case DiffModified:
			modified++
		}
	}

	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	if modified > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", modified))
	}
	if len(parts) == 0 {
		return t.Label() + " changed"
	}
	return fmt.Sprintf("%s changed (%s)", t.Label(), joinParts(parts))
}

func joinParts(parts []string) string {
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + ", " + parts[1]
	default:
		return parts[0] + ", " + parts[1] + ", " + parts[2]
	}
}
