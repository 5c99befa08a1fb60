package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/specsync/spec"
)

// HistoryStore is the persistence the detector needs: the last recorded
// fingerprint and a way to record a new detection. Implementations must
// treat corrupted state as "no history", so LastFingerprint degrades to
// "" rather than failing.
type HistoryStore interface {
	// LastFingerprint returns the most recently recorded fingerprint, or
	// "" when no history exists.
	LastFingerprint() string

	// Record appends a new unprocessed entry and persists it. A failure
	// here is fatal to the pass.
	Record(fingerprint string, changes []ChangeItem) error
}

// SnapshotStore persists the parsed spec between passes as the diff
// baseline. Load degrades to an empty spec when no snapshot exists.
type SnapshotStore interface {
	// Load returns the previously persisted parse, or an empty ParsedSpec
	// when none exists.
	Load() *spec.ParsedSpec

	// Save persists the parse. A failure here is fatal to the pass.
	Save(parsed *spec.ParsedSpec) error
}

// dimension pairs a change type with the snapshot projection it tracks.
type dimension struct {
	Type    ChangeType
	Flatten func(*spec.ParsedSpec) map[string]string
}

// trackedDimensions are diffed in order on every detection.
var trackedDimensions = []dimension{
	{ChangeSources, func(p *spec.ParsedSpec) map[string]string { return p.Sources.Flatten() }},
	{ChangeContentRules, func(p *spec.ParsedSpec) map[string]string { return p.ContentRules.Flatten() }},
	{ChangeValidationRules, func(p *spec.ParsedSpec) map[string]string { return p.ValidationRules.Flatten() }},
	{ChangeOutputStructure, func(p *spec.ParsedSpec) map[string]string { return p.OutputStructure() }},
}

// Result is the outcome of one detection.
type Result struct {
	// HasChanges is false only when the fingerprint matches the last
	// recorded one. A prose-only edit yields HasChanges=true with an
	// empty change list.
	HasChanges bool `json:"has_changes"`

	// Fingerprint is the current document fingerprint.
	Fingerprint string `json:"fingerprint"`

	// Changes holds one item per tracked dimension with differences.
	Changes []ChangeItem `json:"changes,omitempty"`

	// Parsed is the current parse, nil on the unchanged cheap path.
	Parsed *spec.ParsedSpec `json:"-"`
}

// Detector computes change detection for one spec document against the
// persisted history and snapshot.
type Detector struct {
	parser    *spec.Parser
	history   HistoryStore
	snapshots SnapshotStore
	logger    *slog.Logger
}

// NewDetector creates a Detector. A nil logger falls back to
// slog.Default.
func NewDetector(parser *spec.Parser, history HistoryStore, snapshots SnapshotStore, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		parser:    parser,
		history:   history,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Detect runs detection and persists the new fingerprint, change list,
// and snapshot. Persistence failures are fatal: the pass must not report
// success when its own bookkeeping cannot be saved.
func (d *Detector) Detect(ctx context.Context, doc *spec.Document) (*Result, error) {
	return d.run(ctx, doc, true)
}

// Preview runs the same detection without recording anything. Used by
// read-only inspection and dry runs.
func (d *Detector) Preview(ctx context.Context, doc *spec.Document) (*Result, error) {
	return d.run(ctx, doc, false)
}

func (d *Detector) run(ctx context.Context, doc *spec.Document, record bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fingerprint := doc.Fingerprint
	last := d.history.LastFingerprint()

	// Cheap path: identical fingerprint means byte-identical spec, so
	// nothing is parsed or diffed.
	if fingerprint == last {
		d.logger.Debug("Spec unchanged", slog.String("fingerprint", shortFingerprint(fingerprint)))
		return &Result{HasChanges: false, Fingerprint: fingerprint}, nil
	}

	parsed := d.parser.Parse(doc)
	previous := d.snapshots.Load()

	var changes []ChangeItem
	for _, dim := range trackedDimensions {
		diffs := Compare(dim.Flatten(previous), dim.Flatten(parsed))
		if len(diffs) == 0 {
			continue
		}
		changes = append(changes, ChangeItem{
			Type:         dim.Type,
			Description:  describeChange(dim.Type, diffs),
			ImpactTarget: dim.Type.ImpactTarget(),
			Severity:     dim.Type.Severity(),
			Details:      diffs,
		})
	}

	if record {
		if err := d.history.Record(fingerprint, changes); err != nil {
			return nil, fmt.Errorf("record history: %w", err)
		}
		if err := d.snapshots.Save(parsed); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}

	d.logger.Info("Spec changed",
		slog.String("fingerprint", shortFingerprint(fingerprint)),
		slog.Int("changes", len(changes)),
		slog.Bool("recorded", record))

	return &Result{
		HasChanges:  true,
		Fingerprint: fingerprint,
		Changes:     changes,
		Parsed:      parsed,
	}, nil
}

// shortFingerprint truncates a fingerprint for log lines.
func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
