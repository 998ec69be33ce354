package providers

import (
	"testing"

	"github.com/mailchannels/docflow/mimetype"
	"github.com/mailchannels/docflow/parser"
)

func TestAllCoversCoreTypes(t *testing.T) {
	reg := parser.NewRegistry(All()...)
	want := []mimetype.Type{
		mimetype.Plain, mimetype.HTML, mimetype.PDF, mimetype.Zip,
		mimetype.DOCX, mimetype.ODT, mimetype.XLS, mimetype.RFC822,
	}
	for _, wt := range want {
		found := false
		for _, p := range All() {
			for _, parserImpl := range p.Parsers() {
				if parserImpl.SupportedTypes().Contains(wt) {
					found = true
				}
			}
		}
		if !found {
			t.Errorf("no registered parser claims %s", wt)
		}
	}
	_ = reg
}
