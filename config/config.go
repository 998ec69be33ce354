// Package config holds the pipeline's JSON-decoded settings: typed
// global options plus a free-form per-parser section map for settings
// this package has no fixed opinion about.
package config

import (
	"encoding/json"
	"io"
	"strings"
)

// ParserSection is a free-form bag of settings for one named parser.
type ParserSection map[string]interface{}

// PipelineConfig is the root JSON-decoded configuration. Global,
// strongly-typed options live as named fields; anything parser-specific
// that this package doesn't fix an opinion on lives in Parsers.
type PipelineConfig struct {
	// SignatureDBPath optionally overrides the built-in signature table
	// with one loaded from disk (unused by the bundled detector, which
	// always uses its compiled-in table; reserved for a future external
	// signature database).
	SignatureDBPath string `json:"signature_db_path,omitempty"`
	// MaxSignatureProbeBytes is accepted here but not read by the bundled
	// detector, whose signature and ASP/HTML/ODF-flat probes always read
	// a fixed 4096-byte prefix.
	MaxSignatureProbeBytes int `json:"max_signature_probe_bytes,omitempty"`
	// OCRDeadlineSeconds is accepted here but not read by any bundled
	// component; this module contains no OCR backend.
	OCRDeadlineSeconds int `json:"ocr_deadline_seconds,omitempty"`
	// TXTTreatBlankLineAsParagraphBreak is accepted here (defaulting to
	// true, see TXTParagraphBreakOnBlankLine) but not read by the bundled
	// txt parser, which always splits paragraphs on blank lines and emits
	// a BreakLine between the lines of one paragraph.
	TXTTreatBlankLineAsParagraphBreak *bool `json:"txt_blank_line_paragraph_break,omitempty"`
	// PDFLineHeightThreshold and PDFWordGapDivisor override the fixed
	// layout constants in parsers/pdf/layout.go when non-zero; the
	// bundled pdf.Parser does not currently read these (those constants
	// are fixed, not tunables, for the bundled backend), but they are
	// accepted here for a future backend that does make them configurable.
	PDFLineHeightThreshold float64 `json:"pdf_line_height_threshold,omitempty"`
	PDFWordGapDivisor      float64 `json:"pdf_word_gap_divisor,omitempty"`

	// Parsers holds per-parser free-form settings keyed by parser name
	// (e.g. "txt", "ooxml"), for settings not promoted to a typed field
	// above.
	Parsers map[string]ParserSection `json:"parsers,omitempty"`
}

// Load decodes a PipelineConfig from r and lower-cases every Parsers
// section's keys so lookups never have to worry about the casing a
// hand-edited config file used.
func Load(r io.Reader) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.toLower()
	return &cfg, nil
}

func (c *PipelineConfig) toLower() {
	for name, section := range c.Parsers {
		lowered := make(ParserSection, len(section))
		for k, v := range section {
			lowered[strings.ToLower(k)] = v
		}
		c.Parsers[name] = lowered
		lowerName := strings.ToLower(name)
		if lowerName != name {
			c.Parsers[lowerName] = lowered
			delete(c.Parsers, name)
		}
	}
}

// ParserSetting looks up a single key within a named parser's section,
// returning ok=false if either the section or the key is absent.
func (c *PipelineConfig) ParserSetting(parserName, key string) (interface{}, bool) {
	section, ok := c.Parsers[strings.ToLower(parserName)]
	if !ok {
		return nil, false
	}
	v, ok := section[strings.ToLower(key)]
	return v, ok
}

// TXTParagraphBreakOnBlankLine reports the configured
// TXTTreatBlankLineAsParagraphBreak value, defaulting to true when
// unset.
func (c *PipelineConfig) TXTParagraphBreakOnBlankLine() bool {
	if c.TXTTreatBlankLineAsParagraphBreak == nil {
		return true
	}
	return *c.TXTTreatBlankLineAsParagraphBreak
}
