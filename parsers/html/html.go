// Package html implements the HTML parser atop golang.org/x/net/html's
// tokenizer, walking a flat token stream into the nested
// Paragraph/Span/Bold/Italic/Link/Table message structure instead of
// building a DOM tree first.
package html

import (
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

// Parser decodes text/html sources.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.HTML)
}

// tagAction names how an element maps onto the message stream: an
// opener/closer pair, or nothing (structural tags we don't represent,
// like <head> or <meta>).
type tagAction struct {
	open  func() message.Message
	close func() message.Message
}

var tagTable = map[string]tagAction{
	"p":      {message.Paragraph, message.CloseParagraph},
	"div":    {message.Section, message.CloseSection},
	"section": {message.Section, message.CloseSection},
	"span":   {message.Span, message.CloseSpan},
	"b":      {message.Bold, message.CloseBold},
	"strong": {message.Bold, message.CloseBold},
	"i":      {message.Italic, message.CloseItalic},
	"em":     {message.Italic, message.CloseItalic},
	"u":      {message.Underline, message.CloseUnderline},
	"ul":     {func() message.Message { return message.List("unordered") }, message.CloseList},
	"ol":     {func() message.Message { return message.List("ordered") }, message.CloseList},
	"li":     {message.ListItem, message.CloseListItem},
	"table":  {message.Table, message.CloseTable},
	"tr":     {message.TableRow, message.CloseTableRow},
	"td":     {message.TableCell, message.CloseTableCell},
	"th":     {message.TableCell, message.CloseTableCell},
	"caption": {message.Caption, message.CloseCaption},
	"header": {message.Header, message.CloseHeader},
	"footer": {message.Footer, message.CloseFooter},
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	r, err := ds.Stream()
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "open html source", err)
	}

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		return message.Metadata{}, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	tok := html.NewTokenizer(r)
	var openStack []string
	// skipStack tracks tagTable openers whose Emit returned Skip (or that
	// nest inside one): while non-empty, no messages are emitted at all,
	// until its matching end tag pops the stack back to empty. The
	// skipped opener's closer was already emitted by EmitOpener, so the
	// end tag that empties skipStack is itself swallowed, not re-emitted.
	var skipStack []string

	closeAll := func() (message.Continuation, error) {
		cont := message.Proceed
		for i := len(openStack) - 1; i >= 0; i-- {
			if a, ok := tagTable[openStack[i]]; ok {
				var err error
				cont, err = emit.Emit(a.close())
				if err != nil || cont == message.Stop {
					return cont, err
				}
			}
		}
		openStack = nil
		return cont, nil
	}

loop:
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			break loop
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			tag := string(name)

			if len(skipStack) > 0 {
				if _, ok := tagTable[tag]; ok && tt != html.SelfClosingTagToken {
					skipStack = append(skipStack, tag)
				}
				continue
			}

			if tag == "br" {
				if cont, err := emit.Emit(message.BreakLine()); err != nil || cont == message.Stop {
					return cont, err
				}
				continue
			}
			if tag == "a" {
				href, hasHref := tagAttr(tok, "href")
				proceed, cont, err := message.EmitOpener(emit, message.Link(href, hasHref))
				if err != nil || cont == message.Stop {
					return cont, err
				}
				if !proceed {
					if tt != html.SelfClosingTagToken {
						skipStack = append(skipStack, tag)
					}
					continue
				}
				if tt != html.SelfClosingTagToken {
					openStack = append(openStack, "a")
				}
				continue
			}
			if tag == "style" {
				continue
			}
			if a, ok := tagTable[tag]; ok {
				proceed, cont, err := message.EmitOpener(emit, a.open())
				if err != nil || cont == message.Stop {
					return cont, err
				}
				if !proceed {
					if tt != html.SelfClosingTagToken {
						skipStack = append(skipStack, tag)
					}
					continue
				}
				if tt != html.SelfClosingTagToken {
					openStack = append(openStack, tag)
				}
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			tag := string(name)

			if len(skipStack) > 0 {
				if skipStack[len(skipStack)-1] == tag {
					skipStack = skipStack[:len(skipStack)-1]
				}
				continue
			}

			if tag == "a" {
				if cont, err := emit.Emit(message.CloseLink()); err != nil || cont == message.Stop {
					return cont, err
				}
				popStack(&openStack, "a")
				continue
			}
			if a, ok := tagTable[tag]; ok {
				cont, err := emit.Emit(a.close())
				if err != nil || cont == message.Stop {
					return cont, err
				}
				popStack(&openStack, tag)
			}
		case html.TextToken:
			if len(skipStack) > 0 {
				continue
			}
			text := strings.TrimSpace(string(tok.Text()))
			if text == "" {
				continue
			}
			if cont, err := emit.Emit(message.Text(text, nil, 0, false)); err != nil || cont == message.Stop {
				return cont, err
			}
		}
	}
	if err := tok.Err(); err != nil && !errors.Is(err, io.EOF) {
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "html tokenizer", err)
	}

	if cont, err := closeAll(); err != nil || cont == message.Stop {
		return cont, err
	}

	return emit.Emit(message.CloseDocument())
}

func tagAttr(tok *html.Tokenizer, name string) (string, bool) {
	for {
		key, val, more := tok.TagAttr()
		if string(key) == name {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

func popStack(stack *[]string, tag string) {
	s := *stack
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == tag {
			*stack = append(s[:i], s[i+1:]...)
			return
		}
	}
}
