// Package parser defines the format-parser contract and the
// dispatch element that routes a detected DataSource to whichever
// registered Parser claims its highest-confidence MIME type.
package parser

import (
	"context"

	evbus "github.com/asaskevich/EventBus"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/detect"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

// FormatDetectedEvent is the topic ParseDetectedFormat publishes on bus
// once the detection cascade has run, before dispatch; metrics/logging
// subscribers can observe every detected type without being wired into
// the parse path itself.
const FormatDetectedEvent = "format.detected"

// Parser decodes one DataSource whose detected MIME type it claims,
// emitting the message stream for its content through emit. Parse does
// not itself check that the source's MIME type is one it supports or
// call AssertNotEncrypted: ParseDetectedFormat does both (through
// Registry.Lookup and DataSource.AssertNotEncrypted) before calling it.
type Parser interface {
	// SupportedTypes lists the MIME types this parser can decode.
	SupportedTypes() mimetype.Set
	// Parse decodes ds, emitting messages through emit. ParseDetectedFormat
	// passes context.Background() as ctx, and the bundled parsers ignore it.
	Parse(ctx context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error)
}

// Provider groups a related family of Parsers by format family rather
// than registering every parser in one flat list.
type Provider interface {
	Parsers() []Parser
}

// ProviderFunc adapts a slice-returning function to Provider.
type ProviderFunc func() []Parser

func (f ProviderFunc) Parsers() []Parser { return f() }

// Registry aggregates Providers and dispatches a DataSource to the first
// Parser whose SupportedTypes contains its highest-confidence
// hypothesis.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a Registry from the given providers, queried in
// order; the first matching parser wins.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Lookup returns the Parser claiming ds's current highest-confidence
// MIME type, or ok=false if none of the registered providers' parsers
// support it.
func (r *Registry) Lookup(ds *datasource.DataSource) (Parser, bool) {
	top, _, ok := ds.HighestMimeTypeConfidence()
	if !ok {
		return nil, false
	}
	for _, p := range r.providers {
		for _, parser := range p.Parsers() {
			if parser.SupportedTypes().Contains(top) {
				return parser, true
			}
		}
	}
	return nil, false
}

// ParseDetectedFormat is the chain.Element that runs the detection
// cascade over an incoming message.File's DataSource, looks up a Parser
// in reg, and runs it, forwarding every message the parser emits to the
// next stage. A message.File whose DataSource detects to nothing
// registered becomes a docerr UnknownFormat error, emitted as a
// message.Error and treated as recoverable (parsing of sibling files in
// an archive or mailbox continues).
type ParseDetectedFormat struct {
	reg    *Registry
	logger log.Logger
	bus    *evbus.EventBus
}

// NewParseDetectedFormat builds the dispatch element over reg, logging
// through logger (logger may be nil, in which case its dispatch debug
// line and the detector's debug lines are skipped) and publishing FormatDetectedEvent on bus
// (bus may be nil, in which case publishing is skipped).
func NewParseDetectedFormat(reg *Registry, logger log.Logger, bus *evbus.EventBus) *ParseDetectedFormat {
	return &ParseDetectedFormat{reg: reg, logger: logger, bus: bus}
}

func (e *ParseDetectedFormat) Handle(msg message.Message, next, _ chain.Emitter) (message.Continuation, error) {
	if msg.Kind != message.KindFile || msg.File == nil {
		return next.Emit(msg)
	}
	ds, ok := msg.File.Source.(*datasource.DataSource)
	if !ok {
		return next.Emit(msg)
	}

	if err := detect.Run(ds, e.logger); err != nil {
		return message.Proceed, err
	}

	if e.bus != nil {
		if t, confidence, ok := ds.HighestMimeTypeConfidence(); ok {
			e.bus.Publish(FormatDetectedEvent, ds.ID(), t, confidence)
		}
	}

	p, ok := e.reg.Lookup(ds)
	if !ok {
		derr := docerr.New(docerr.UnknownFormat, "no parser claims this source's detected type")
		if t, _, ok := ds.HighestMimeTypeConfidence(); ok {
			derr = derr.WithContext(docerr.Frame{"mime_type": string(t)})
		}
		cont, _ := next.Emit(message.Error(derr))
		return cont, nil
	}

	if err := ds.AssertNotEncrypted(); err != nil {
		cont, _ := next.Emit(message.Error(err.(*docerr.Error)))
		return cont, nil
	}

	if e.logger != nil {
		e.logger.WithSource(ds.ID(), "parser.dispatch").Debug("parsing with " + describeParser(p))
	}

	return p.Parse(context.Background(), ds, next, e.logger)
}

func describeParser(p Parser) string {
	for t := range p.SupportedTypes() {
		return string(t)
	}
	return "unknown"
}
