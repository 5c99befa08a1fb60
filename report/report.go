// Package report renders pass summaries to timestamped report files.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/specsync/detect"
	"github.com/c360studio/specsync/dispatch"
	"github.com/c360studio/specsync/impact"
)

// Format identifies a report rendering.
type Format string

const (
	// FormatMarkdown is the default report format.
	FormatMarkdown Format = "markdown"
	// FormatText is a compact plain-text rendering.
	FormatText Format = "text"
)

// FormatInfo provides metadata about a report format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported report formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatMarkdown: {
		Name:        FormatMarkdown,
		Extension:   ".md",
		Description: "Markdown report with inline value diffs",
	},
	FormatText: {
		Name:        FormatText,
		Extension:   ".txt",
		Description: "Compact plain-text summary",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Writer renders one pass summary.
type Writer interface {
	Write(summary *dispatch.Summary, analysis *impact.Analysis, changes []detect.ChangeItem) string
}

// NewWriter returns the writer for a format. Unknown formats fall back
// to markdown.
func NewWriter(format Format) Writer {
	switch format {
	case FormatText:
		return &TextWriter{}
	default:
		return &MarkdownWriter{}
	}
}

// Filename builds the timestamped report file name for a format.
func Filename(format Format, t time.Time) string {
	info, ok := GetFormatInfo(format)
	if !ok {
		info = FormatRegistry[FormatMarkdown]
	}
	return "sync-report-" + t.UTC().Format("20060102-150405") + info.Extension
}

// Reporter writes rendered summaries into the reports directory.
type Reporter struct {
	dir    string
	format Format
	logger *slog.Logger
}

// NewReporter creates a Reporter writing format-rendered reports under
// dir.
func NewReporter(dir string, format Format, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if _, ok := GetFormatInfo(format); !ok {
		format = FormatMarkdown
	}
	return &Reporter{dir: dir, format: format, logger: logger}
}

// Write renders the summary and writes the timestamped report file,
// returning its path.
func (r *Reporter) Write(summary *dispatch.Summary, analysis *impact.Analysis, changes []detect.ChangeItem) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}

	content := NewWriter(r.format).Write(summary, analysis, changes)
	path := filepath.Join(r.dir, Filename(r.format, summary.Timestamp))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	r.logger.Info("Report written",
		slog.String("path", path),
		slog.String("summary_id", summary.ID))
	return path, nil
}
