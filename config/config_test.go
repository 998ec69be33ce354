package config

import (
	"strings"
	"testing"
)

const sample = `{
	"max_signature_probe_bytes": 8192,
	"parsers": {
		"TXT": {"CollapseWhitespace": true}
	}
}`

func TestLoadLowercasesParserKeys(t *testing.T) {
	cfg, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxSignatureProbeBytes != 8192 {
		t.Fatalf("got %d, want 8192", cfg.MaxSignatureProbeBytes)
	}
	v, ok := cfg.ParserSetting("txt", "collapsewhitespace")
	if !ok {
		t.Fatalf("expected a lower-cased key to be found")
	}
	if b, ok := v.(bool); !ok || !b {
		t.Fatalf("got %v, want true", v)
	}
}

func TestTXTParagraphBreakDefaultsTrue(t *testing.T) {
	var cfg PipelineConfig
	if !cfg.TXTParagraphBreakOnBlankLine() {
		t.Fatal("expected default true")
	}
}
