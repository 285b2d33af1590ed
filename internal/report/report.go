// Package report renders stored analyses as exportable documents.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
)

// Type selects the report content.
type Type string

// Report types.
const (
	TypeDetailed   Type = "detailed"
	TypeExecutive  Type = "executive"
	TypeCompliance Type = "compliance"
)

// Format selects the encoding.
type Format string

// Report formats.
const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Version is stamped into every report's metadata.
const Version = "1.0.0"

// CertificateValidity is how long a compliance certificate stays valid.
const CertificateValidity = 90 * 24 * time.Hour

// ParseType maps a query value onto a Type. Empty means detailed.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeDetailed, nil
	case TypeDetailed, TypeExecutive, TypeCompliance:
		return t, nil
	default:
		return "", baseline.InvalidInput("Unknown report type %q", s)
	}
}

// ParseFormat maps a query value onto a Format. Empty means json; "md" is
// accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", baseline.InvalidInput("Unknown report format %q", s)
	}
}

// Metadata heads every report.
type Metadata struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Type        Type      `json:"type"`
	Format      Format    `json:"format"`
	Version     string    `json:"version"`
	AnalysisID  string    `json:"analysisId,omitempty"`
}

// Document is a rendered report ready to be served or stored.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Generator renders reports.
type Generator struct {
	clock baseline.Clock
}

// NewGenerator returns a generator stamping reports with clock. A nil clock
// uses wall time.
func NewGenerator(clock baseline.Clock) *Generator {
	return &Generator{clock: clock}
}

func (g *Generator) now() time.Time {
	if g.clock == nil {
		return time.Now().UTC()
	}
	return g.clock.Now().UTC()
}

// Render builds and encodes one report for result.
func (g *Generator) Render(result baseline.AnalysisResult, t Type, f Format) (Document, error) {
	meta := Metadata{GeneratedAt: g.now(), Type: t, Format: f, Version: Version, AnalysisID: result.ID}
	content, err := Build(result, t, meta.GeneratedAt)
	if err != nil {
		return Document{}, err
	}

	name := filename(result, t, f)
	switch f {
	case FormatJSON:
		body, err := encodeJSON(meta, content)
		if err != nil {
			return Document{}, err
		}
		return Document{Filename: name, ContentType: "application/json", Body: body}, nil
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := writeMarkdown(&buf, meta, content); err != nil {
			return Document{}, fmt.Errorf("render markdown: %w", err)
		}
		return Document{Filename: name, ContentType: "text/markdown; charset=utf-8", Body: buf.Bytes()}, nil
	default:
		return Document{}, baseline.InvalidInput("Unknown report format %q", f)
	}
}

// Build assembles the report content for t.
func Build(result baseline.AnalysisResult, t Type, now time.Time) (any, error) {
	switch t {
	case TypeDetailed:
		return detailed(result), nil
	case TypeExecutive:
		return executive(result), nil
	case TypeCompliance:
		return compliance(result, now), nil
	default:
		return nil, baseline.InvalidInput("Unknown report type %q", t)
	}
}

func encodeJSON(meta Metadata, content any) ([]byte, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode report metadata: %w", err)
	}
	fields["metadata"] = metaRaw
	body, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return body, nil
}

func filename(result baseline.AnalysisResult, t Type, f Format) string {
	ext := "json"
	if f == FormatMarkdown {
		ext = "md"
	}
	id := result.ID
	if id == "" {
		id = result.Timestamp.UTC().Format("20060102T150405Z")
	}
	return fmt.Sprintf("baseline-report-%s-%s.%s", id, t, ext)
}
