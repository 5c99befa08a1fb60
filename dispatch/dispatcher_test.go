package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/impact"
	"github.com/c360studio/specsync/modules"
)

// stubStrategy returns canned results for dispatcher tests.
type stubStrategy struct {
	updates []string
	err     error
}

func (s *stubStrategy) Apply(ctx context.Context, item detect.ChangeItem) ([]string, error) {
	return s.updates, s.err
}

func TestDispatcher_Apply_AutomaticUpdate(t *testing.T) {
	dir := scaffoldedDir(t)
	dispatcher := NewDispatcher(NewRegistry(dir), nil)

	changes := []detect.ChangeItem{
		sourceURLChange("https://example.com/api/commands.json", "https://example.com/api/v2/commands.json"),
	}
	analysis := impact.Analyze(changes)
	require.True(t, analysis.AutoUpdateable)

	summary := dispatcher.Apply(context.Background(), changes, analysis)

	assert.NotEmpty(t, summary.ID)
	assert.False(t, summary.Timestamp.IsZero())
	assert.Equal(t, 1, summary.AutomaticUpdates)
	assert.Equal(t, 0, summary.ManualReviewRequired)
	assert.True(t, summary.Success)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, UpdateResult{
		Type:    "data-extractors",
		Updates: []string{"Updated commands URL"},
		Success: true,
	}, summary.Results[0])

	assert.Equal(t, []string{"Run the integration validation pass over the generated documentation"}, summary.NextSteps)

	// The module config was rewritten with the new URL.
	cfg, err := dir.Load(modules.DataExtractors)
	require.NoError(t, err)
	v, _ := cfg.Get("commands")
	assert.Equal(t, "https://example.com/api/v2/commands.json", v)
}

func TestDispatcher_Apply_FlaggedChangesSkipStrategies(t *testing.T) {
	dir := scaffoldedDir(t)
	dispatcher := NewDispatcher(NewRegistry(dir), nil)

	changes := []detect.ChangeItem{
		{
			Type:         detect.ChangeContentRules,
			Description:  "Content rules changed (1 modified)",
			ImpactTarget: "content-builders",
			Severity:     detect.SeverityHigh,
			Details: []detect.Difference{
				{Key: "example-prompts", Kind: detect.DiffModified, OldValue: "three per command", NewValue: "five per command"},
			},
		},
	}
	analysis := impact.Analyze(changes)
	require.False(t, analysis.AutoUpdateable)

	summary := dispatcher.Apply(context.Background(), changes, analysis)

	assert.Empty(t, summary.Results)
	assert.Equal(t, 0, summary.AutomaticUpdates)
	assert.Equal(t, 1, summary.ManualReviewRequired)
	require.Len(t, summary.ManualReviewItems, 1)
	assert.Equal(t, detect.ChangeContentRules, summary.ManualReviewItems[0].Type)
	assert.True(t, summary.Success)

	require.Len(t, summary.NextSteps, 2)
	assert.Equal(t, "Review 1 change(s) flagged for manual attention", summary.NextSteps[1])

	// The flagged change never reached the config file.
	cfg, err := dir.Load(modules.ContentBuilders)
	require.NoError(t, err)
	v, _ := cfg.Get("example-prompts")
	assert.Equal(t, "three per command", v)
}

func TestDispatcher_Apply_NoStrategyForType(t *testing.T) {
	dispatcher := NewDispatcher(Registry{}, nil)

	changes := []detect.ChangeItem{sourceURLChange("a", "b")}

	summary := dispatcher.Apply(context.Background(), changes, impact.Analyze(changes))

	assert.Empty(t, summary.Results)
	assert.Equal(t, 1, summary.ManualReviewRequired)
	require.Len(t, summary.ManualReviewItems, 1)
	assert.Contains(t, summary.ManualReviewItems[0].Error, "no strategy registered")
}

func TestDispatcher_Apply_StrategyFailureIsolated(t *testing.T) {
	dir := scaffoldedDir(t)
	registry := NewRegistry(dir)
	registry[detect.ChangeSources] = &stubStrategy{err: errors.New("upstream unreachable")}
	dispatcher := NewDispatcher(registry, nil)

	changes := []detect.ChangeItem{
		sourceURLChange("a", "b"),
		{
			Type:         detect.ChangeValidationRules,
			Description:  "Validation rules changed (1 modified)",
			ImpactTarget: "quality-controllers",
			Severity:     detect.SeverityMedium,
			Details: []detect.Difference{
				{Key: "link-check", Kind: detect.DiffModified, OldValue: "enabled", NewValue: "strict"},
			},
		},
	}

	summary := dispatcher.Apply(context.Background(), changes, impact.Analyze(changes))

	// The failure is attached to its change and the pass continues.
	require.Len(t, summary.Results, 2)
	assert.False(t, summary.Results[0].Success)
	assert.True(t, summary.Results[1].Success)
	assert.Equal(t, []string{`Updated validation check "link-check"`}, summary.Results[1].Updates)

	assert.False(t, summary.Success)
	assert.Equal(t, 1, summary.AutomaticUpdates)
	assert.Equal(t, 1, summary.ManualReviewRequired)
	require.Len(t, summary.ManualReviewItems, 1)
	assert.Equal(t, "upstream unreachable", summary.ManualReviewItems[0].Error)

	// The second change still landed.
	cfg, err := dir.Load(modules.QualityControllers)
	require.NoError(t, err)
	v, _ := cfg.Get("link-check")
	assert.Equal(t, "strict", v)
}

func TestDispatcher_Apply_EmptyChangeSet(t *testing.T) {
	dispatcher := NewDispatcher(Registry{}, nil)

	summary := dispatcher.Apply(context.Background(), nil, nil)

	assert.NotEmpty(t, summary.ID)
	assert.True(t, summary.Success)
	assert.Equal(t, 0, summary.AutomaticUpdates)
	assert.Equal(t, 0, summary.ManualReviewRequired)
	assert.Empty(t, summary.Results)
	assert.Empty(t, summary.ManualReviewItems)
	assert.Equal(t, []string{"Run the integration validation pass over the generated documentation"}, summary.NextSteps)
}
