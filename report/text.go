package report

import (
	"fmt"
	"strings"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/dispatch"
	"github.com/c360studio/specsync/impact"
)

// TextWriter renders a compact plain-text summary, suitable for terminal
// output at the end of a pass.
type TextWriter struct {
	sb strings.Builder
}

// Write renders the summary and returns it.
func (w *TextWriter) Write(summary *dispatch.Summary, analysis *impact.Analysis, changes []detect.ChangeItem) string {
	w.sb.Reset()

	outcome := "success"
	if !summary.Success {
		outcome = "needs attention"
	}
	w.sb.WriteString(fmt.Sprintf("Sync pass %s: %s\n", summary.ID, outcome))
	w.sb.WriteString(fmt.Sprintf("  changes detected:  %d\n", len(changes)))
	w.sb.WriteString(fmt.Sprintf("  automatic updates: %d\n", summary.AutomaticUpdates))
	w.sb.WriteString(fmt.Sprintf("  manual review:     %d\n", summary.ManualReviewRequired))
	if analysis != nil {
		w.sb.WriteString(fmt.Sprintf("  estimated effort:  %s\n", analysis.EstimatedEffort))
	}

	for _, result := range summary.Results {
		for _, update := range result.Updates {
			w.sb.WriteString(fmt.Sprintf("  [%s] %s\n", result.Type, update))
		}
	}
	for _, item := range summary.ManualReviewItems {
		line := fmt.Sprintf("  [review] %s: %s", item.Type, item.Description)
		if item.Error != "" {
			line += " (" + item.Error + ")"
		}
		w.sb.WriteString(line + "\n")
	}
	for _, step := range summary.NextSteps {
		w.sb.WriteString("  next: " + step + "\n")
	}

	return w.sb.String()
}
