package ole

import (
	"strings"
	"testing"
)

func TestOpenRejectsBadSignature(t *testing.T) {
	_, err := Open(strings.NewReader("not an ole file at all, just text padded out"), 64)
	if err == nil {
		t.Fatal("expected error for bad signature")
	}
}

func TestOpenRejectsTooShort(t *testing.T) {
	_, err := Open(strings.NewReader("short"), 5)
	if err == nil {
		t.Fatal("expected error for too-short container")
	}
}
