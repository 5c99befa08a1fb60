// Package spec parses specification documents into structured,
// versioned configuration objects.
package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is an immutable spec document: the canonical text plus any
// metadata supplied in a YAML frontmatter header.
type Document struct {
	// Path is the originating file path, if the document came from disk.
	Path string

	// Raw is the full canonical text, frontmatter included. Fingerprints
	// are computed over Raw, so equal fingerprints imply byte-identical
	// documents.
	Raw string

	// Body is the text after frontmatter extraction. Section scanning
	// operates on Body.
	Body string

	// Meta holds scalar frontmatter values keyed by field name.
	// Malformed frontmatter leaves Meta empty; it is never fatal.
	Meta map[string]string

	// Fingerprint is the SHA-256 hex digest of Raw.
	Fingerprint string

	// ModTime is the file modification time when the document came from
	// disk, zero otherwise.
	ModTime time.Time
}

// NewDocument builds a Document from canonical spec text. Frontmatter is
// extracted when present; if it cannot be parsed the entire content is
// treated as body.
func NewDocument(path, content string) *Document {
	doc := &Document{
		Path:        path,
		Raw:         content,
		Meta:        map[string]string{},
		Fingerprint: Fingerprint([]byte(content)),
	}

	if strings.HasPrefix(content, "---\n") || strings.HasPrefix(content, "---\r\n") {
		meta, body, err := extractFrontmatter(content)
		if err != nil {
			doc.Body = content
		} else {
			doc.Meta = meta
			doc.Body = body
		}
	} else {
		doc.Body = content
	}

	return doc
}

// LoadDocument reads a spec file from disk. A read failure is the only
// fatal parse-side error; it aborts the pass.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	doc := NewDocument(path, string(data))
	if info, err := os.Stat(path); err == nil {
		doc.ModTime = info.ModTime()
	}
	return doc, nil
}

// Fingerprint computes the SHA-256 hex digest of content.
func Fingerprint(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// extractFrontmatter parses YAML frontmatter from spec content.
// Returns the scalar metadata map, the remaining body, and any error.
func extractFrontmatter(content string) (map[string]string, string, error) {
	const delimiter = "---"

	// Skip the opening delimiter
	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	// Find the closing delimiter
	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		closeIdx = strings.Index(content[start:], "\r\n"+delimiter)
	}
	if closeIdx == -1 {
		return nil, content, fmt.Errorf("no closing frontmatter delimiter")
	}

	yamlContent := content[start : start+closeIdx]

	// Body starts after the closing delimiter and its newline
	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}

	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &raw); err != nil {
		return nil, content, fmt.Errorf("parse YAML frontmatter: %w", err)
	}

	meta := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			meta[k] = val
		case bool:
			meta[k] = strconv.FormatBool(val)
		case int:
			meta[k] = strconv.Itoa(val)
		case float64:
			meta[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case time.Time:
			meta[k] = val.UTC().Format(time.RFC3339)
		}
		// Nested values are not metadata headers; skip them.
	}

	return meta, body, nil
}
