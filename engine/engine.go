package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/dispatch"
	"github.com/c360studio/specsync/history"
	"github.com/c360studio/specsync/impact"
	"github.com/c360studio/specsync/ingest"
	"github.com/c360studio/specsync/modules"
	"github.com/c360studio/specsync/report"
	"github.com/c360studio/specsync/spec"
)

// PassResult is the outcome of one synchronization pass.
type PassResult struct {
	// State is the stage the pass reached. Completed passes end at
	// StateUnchanged or StateRecorded; dry runs stop at StateClassified.
	State State `json:"state"`

	// Fingerprint is the spec fingerprint observed by the pass.
	Fingerprint string `json:"fingerprint"`

	// Changes holds the detected change items, if any.
	Changes []detect.ChangeItem `json:"changes,omitempty"`

	// Analysis is the impact classification, nil on the unchanged path.
	Analysis *impact.Analysis `json:"analysis,omitempty"`

	// Summary is the dispatch account, nil on the unchanged path and in
	// dry runs.
	Summary *dispatch.Summary `json:"summary,omitempty"`

	// ReportPath is where the report file was written, "" otherwise.
	ReportPath string `json:"report_path,omitempty"`
}

// advance moves the pass to the next state, guarding against invalid
// transitions. A violation is a programming error, never an input error.
func (p *PassResult) advance(next State) {
	if !p.State.CanTransitionTo(next) {
		panic(fmt.Sprintf("invalid pass transition %s -> %s", p.State, next))
	}
	p.State = next
}

// Options configure a sync engine.
type Options struct {
	// SpecPath is the spec document to synchronize from.
	SpecPath string

	// StateDir holds history and snapshot files.
	StateDir string

	// ModulesDir holds the downstream module configs.
	ModulesDir string

	// ReportsDir holds the pass reports. Defaults to
	// <StateDir>/reports.
	ReportsDir string

	// ReportFormat selects the report rendering. Defaults to markdown.
	ReportFormat report.Format

	// Logger is used by every component. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine runs synchronization passes. Passes are single-threaded and
// sequential; callers must serialize invocations, since history assumes
// a single writer.
type Engine struct {
	specPath   string
	detector   *detect.Detector
	dispatcher *dispatch.Dispatcher
	reporter   *report.Reporter
	logger     *slog.Logger
}

// New wires the production engine: file-backed history and snapshot
// under the state directory, YAML module configs, and file reports.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reportsDir := opts.ReportsDir
	if reportsDir == "" {
		reportsDir = filepath.Join(opts.StateDir, "reports")
	}

	parser := spec.NewParser(logger)
	hist := history.NewFileStore(filepath.Join(opts.StateDir, history.HistoryFile), logger)
	snap := history.NewSnapshot(filepath.Join(opts.StateDir, history.SnapshotFile), logger)
	dir := modules.NewDir(opts.ModulesDir, logger)

	return &Engine{
		specPath:   opts.SpecPath,
		detector:   detect.NewDetector(parser, hist, snap, logger),
		dispatcher: dispatch.NewDispatcher(dispatch.NewRegistry(dir), logger),
		reporter:   report.NewReporter(reportsDir, opts.ReportFormat, logger),
		logger:     logger,
	}
}

// NewWithComponents assembles an engine from explicit components. Tests
// use it to inject in-memory stores.
func NewWithComponents(specPath string, detector *detect.Detector, dispatcher *dispatch.Dispatcher, reporter *report.Reporter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		specPath:   specPath,
		detector:   detector,
		dispatcher: dispatcher,
		reporter:   reporter,
		logger:     logger,
	}
}

// Run executes one full pass: load, detect (which records history and
// snapshot), classify, dispatch, and write the report. An unreadable
// spec or unwritable bookkeeping aborts the pass; strategy failures do
// not.
func (e *Engine) Run(ctx context.Context) (*PassResult, error) {
	pass := &PassResult{State: StateIdle}

	doc, err := ingest.Load(e.specPath)
	if err != nil {
		return nil, err
	}
	pass.advance(StateFingerprinted)
	pass.Fingerprint = doc.Fingerprint

	result, err := e.detector.Detect(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !result.HasChanges {
		pass.advance(StateUnchanged)
		e.logger.Info("Pass complete, spec unchanged")
		return pass, nil
	}
	pass.advance(StateParsed)
	pass.advance(StateDiffed)
	pass.Changes = result.Changes

	if err := ctx.Err(); err != nil {
		return pass, err
	}

	pass.Analysis = impact.Analyze(result.Changes)
	pass.advance(StateClassified)

	pass.Summary = e.dispatcher.Apply(ctx, result.Changes, pass.Analysis)
	if pass.Summary.ManualReviewRequired > 0 {
		pass.advance(StateManualReviewPending)
	} else {
		pass.advance(StateAutoApplied)
	}

	path, err := e.reporter.Write(pass.Summary, pass.Analysis, pass.Changes)
	if err != nil {
		return pass, err
	}
	pass.ReportPath = path
	pass.advance(StateRecorded)

	e.logger.Info("Pass complete",
		slog.String("state", pass.State.String()),
		slog.Int("changes", len(pass.Changes)),
		slog.String("report", path))

	return pass, nil
}

// DryRun executes detection and classification without recording,
// dispatching, or reporting. The result stops at StateClassified (or
// StateUnchanged).
func (e *Engine) DryRun(ctx context.Context) (*PassResult, error) {
	pass := &PassResult{State: StateIdle}

	doc, err := ingest.Load(e.specPath)
	if err != nil {
		return nil, err
	}
	pass.advance(StateFingerprinted)
	pass.Fingerprint = doc.Fingerprint

	result, err := e.detector.Preview(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !result.HasChanges {
		pass.advance(StateUnchanged)
		return pass, nil
	}
	pass.advance(StateParsed)
	pass.advance(StateDiffed)
	pass.Changes = result.Changes

	pass.Analysis = impact.Analyze(result.Changes)
	pass.advance(StateClassified)

	return pass, nil
}
