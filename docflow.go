// Package docflow is the library entry point: a small fluent Pipeline
// wrapping the chain/detect/parser/export machinery behind a
// `.parse(path).exportAs(format)` builder, without a C ABI or CLI
// argument parsing around it — both of those are out of scope for this
// library surface.
package docflow

import (
	"fmt"
	"io"
	"path/filepath"

	evbus "github.com/asaskevich/EventBus"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/export"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/parser"
	"github.com/mailchannels/docflow/providers"
)

// Pipeline aggregates the bundled parser providers behind a single
// parser.Registry and the event bus ParseDetectedFormat publishes to.
type Pipeline struct {
	reg    *parser.Registry
	logger log.Logger
	bus    *evbus.EventBus
}

// New builds a Pipeline over every bundled parser provider
// (providers.All). logger may be nil.
func New(logger log.Logger) *Pipeline {
	return &Pipeline{
		reg:    parser.NewRegistry(providers.All()...),
		logger: logger,
		bus:    evbus.New(),
	}
}

// Subscribe registers fn on the Pipeline's event bus for topic (see
// parser.FormatDetectedEvent), the same EventBus instance
// ParseDetectedFormat publishes format-detected events on.
func (p *Pipeline) Subscribe(topic string, fn interface{}) error {
	return p.bus.Subscribe(topic, fn)
}

// ParseRequest is the builder returned by Pipeline.Parse; call ExportAs
// to run the parse and write its output through a named exporter.
type ParseRequest struct {
	pipeline *Pipeline
	ds       *datasource.DataSource
	name     string
}

// Parse opens path as a DataSource and returns a request ready for
// ExportAs. It does not read or parse path yet.
func (p *Pipeline) Parse(path string) *ParseRequest {
	return &ParseRequest{pipeline: p, ds: datasource.FromPath(path), name: filepath.Base(path)}
}

// ParseReader wraps an already-open stream (e.g. an email attachment's
// bytes) the same way Parse wraps a path.
func (p *Pipeline) ParseReader(r io.Reader, name string) *ParseRequest {
	ds := datasource.FromNamedStream(r, name)
	return &ParseRequest{pipeline: p, ds: ds, name: name}
}

// ExportAs runs the detection cascade and parser dispatch over the
// request's source, writing its message stream through the named
// exporter ("txt", "html", "csv", "metadata") to w. It returns the
// final Continuation the exporter reported.
func (r *ParseRequest) ExportAs(format string, w io.Writer) (message.Continuation, error) {
	terminal, flush, err := exporterFor(format, w)
	if err != nil {
		return message.Proceed, err
	}

	dispatch := parser.NewParseDetectedFormat(r.pipeline.reg, r.pipeline.logger, r.pipeline.bus)
	c, err := chain.New(dispatch, terminal)
	if err != nil {
		return message.Proceed, err
	}

	cont, err := c.Emit(message.File("", false, r.ds, r.name, true))
	if err != nil {
		return cont, err
	}
	if flushErr := flush(); flushErr != nil {
		return cont, flushErr
	}
	return cont, nil
}

func exporterFor(format string, w io.Writer) (chain.Element, func() error, error) {
	switch format {
	case "txt":
		e := export.NewPlainTextWriter(w)
		return e, e.Flush, nil
	case "html":
		e := export.NewHtmlWriter(w)
		return e, e.Flush, nil
	case "csv":
		e := export.NewCsvWriter(w)
		return e, e.Flush, nil
	case "metadata":
		e := export.NewMetadataExporter(w)
		return e, e.Flush, nil
	default:
		return nil, nil, fmt.Errorf("docflow: unknown export format %q", format)
	}
}
