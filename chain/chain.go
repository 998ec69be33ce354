// Package chain implements the ChainElement composition: an ordered
// pipeline of elements each message passes through, with forward emission
// to the next element and a Continuation returned back to whichever
// element (or parser) produced the message.
//
// A Decorator wraps an Element to produce a new Element, and Decorate
// folds a slice of Decorators around a base Element, the same
// decorator-chain-of-responsibility shape used elsewhere for processing
// pipelines. Here an Element wraps the next Emitter in the pipeline
// instead of wrapping a one-shot processing function, because a chain
// element may emit zero, one, or many downstream messages per message
// received — the decoration point is the emit call, not a single
// all-at-once processing call.
package chain

import (
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/message"
)

// Emitter forwards a message to the next stage and reports the
// Continuation that stage (or, transitively, anything downstream of it)
// wants applied to the producer.
type Emitter interface {
	Emit(msg message.Message) (message.Continuation, error)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(message.Message) (message.Continuation, error)

func (f EmitterFunc) Emit(msg message.Message) (message.Continuation, error) { return f(msg) }

// BackReceiver is implemented by an Element that accepts reverse-emitted
// messages on its back-receiving side, delivered via the back Emitter its
// successor's Handle call is given. Only a handful of elements need this
// (a sub-stage handing a transformed message back upstream); an Element
// that doesn't implement it simply never receives one.
type BackReceiver interface {
	HandleBack(msg message.Message) (message.Continuation, error)
}

// Element is one stage of a ParsingChain. Handle receives a message, an
// Emitter bound to the next stage, and an Emitter bound to the previous
// stage's back-receiving side. It forwards by calling next.Emit(msg)
// (possibly transforming msg, possibly emitting several messages,
// possibly none), and returns the Continuation its own producer should
// honor. back.Emit(msg) delivers msg to the previous element's
// HandleBack, if it implements BackReceiver, enabling a later stage to
// re-emit a transformed message upstream.
type Element interface {
	Handle(msg message.Message, next, back Emitter) (message.Continuation, error)
}

// ElementFunc adapts a function to Element.
type ElementFunc func(message.Message, Emitter, Emitter) (message.Continuation, error)

func (f ElementFunc) Handle(msg message.Message, next, back Emitter) (message.Continuation, error) {
	return f(msg, next, back)
}

// Decorator wraps an Element to produce a new Element.
type Decorator func(Element) Element

// Decorate folds ds around base, innermost decorator applied first.
func Decorate(base Element, ds ...Decorator) Element {
	decorated := base
	for _, d := range ds {
		decorated = d(decorated)
	}
	return decorated
}

// Terminal marks an Element as a valid chain sink (an exporter): a
// ParsingChain requires exactly one Terminal element, and it must be
// last.
type Terminal interface {
	Element
	terminal()
}

// terminalElement embeds in a concrete exporter type to satisfy Terminal
// without repeating the marker method everywhere:
//
//	type PlainTextWriter struct { chain.TerminalElement }
type TerminalElement struct{}

func (TerminalElement) terminal() {}

// sink is the Emitter at the end of every chain: a message reaching it
// without a Terminal element ahead either means the chain is empty or a
// non-terminal element forwarded past the last configured stage, both
// already rejected at New time, so this always returns Proceed.
type sink struct{}

func (sink) Emit(message.Message) (message.Continuation, error) { return message.Proceed, nil }

// backLink is the Emitter a link passes to its successor as that
// successor's back channel: delivering to elem's HandleBack if elem
// implements BackReceiver, a no-op otherwise.
type backLink struct {
	elem Element
}

func (b *backLink) Emit(msg message.Message) (message.Continuation, error) {
	if r, ok := b.elem.(BackReceiver); ok {
		return r.HandleBack(msg)
	}
	return message.Proceed, nil
}

// link binds one Element to the Emitter representing everything after it
// in the chain (next) and the Emitter representing the previous
// element's back-receiving side (back).
type link struct {
	elem Element
	next Emitter
	back Emitter
}

func (l *link) Emit(msg message.Message) (message.Continuation, error) {
	return l.elem.Handle(msg, l.next, l.back)
}

// ParsingChain is a validated, linked sequence of Elements terminating
// in exactly one Terminal.
type ParsingChain struct {
	head Emitter
}

// New builds a ParsingChain from elems in order. It requires at least
// one element, exactly one of which — the last — implements Terminal;
// any Terminal appearing earlier is rejected, since a terminal element
// never forwards and everything after it would be unreachable.
func New(elems ...Element) (*ParsingChain, error) {
	if len(elems) == 0 {
		return nil, docerr.New(docerr.UninterpretableData, "parsing chain requires at least one element")
	}
	for i, e := range elems {
		_, isTerminal := e.(Terminal)
		last := i == len(elems)-1
		if isTerminal && !last {
			return nil, docerr.New(docerr.UninterpretableData, "terminal element must be last in chain")
		}
		if !isTerminal && last {
			return nil, docerr.New(docerr.UninterpretableData, "chain must end in a terminal element")
		}
	}

	links := make([]*link, len(elems))
	var next Emitter = sink{}
	for i := len(elems) - 1; i >= 0; i-- {
		links[i] = &link{elem: elems[i], next: next}
		next = links[i]
	}

	var back Emitter = sink{}
	for i := 0; i < len(elems); i++ {
		links[i].back = back
		back = &backLink{elem: elems[i]}
	}

	return &ParsingChain{head: links[0]}, nil
}

// Emit feeds msg into the head of the chain.
func (c *ParsingChain) Emit(msg message.Message) (message.Continuation, error) {
	return c.head.Emit(msg)
}

// Run feeds every message in msgs through the chain in order, stopping
// early if any message returns Stop, and returns the last Continuation
// observed.
func (c *ParsingChain) Run(msgs []message.Message) (message.Continuation, error) {
	cont := message.Proceed
	for _, m := range msgs {
		var err error
		cont, err = c.Emit(m)
		if err != nil {
			return cont, err
		}
		if cont == message.Stop {
			return cont, nil
		}
	}
	return cont, nil
}
