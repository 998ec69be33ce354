// Package eml implements the RFC822/MIME e-mail parser. The structural
// tree walk (boundaries, per-part headers, body bytes) is delegated to
// the mimescan.Scanner interface; the envelope header grammar (From/To/
// Subject/Date folding and RFC 2047 words) is handled by stdlib net/mail
// instead of re-deriving it.
package eml

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/mailchannels/docflow/charset"
	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/encoding"
	"github.com/mailchannels/docflow/internal/mimescan"
	"github.com/mailchannels/docflow/log"
	"github.com/mailchannels/docflow/message"
	"github.com/mailchannels/docflow/mimetype"
)

// Parser decodes message/rfc822 sources.
type Parser struct{}

// New returns a ready-to-register Parser.
func New() *Parser { return &Parser{} }

func (*Parser) SupportedTypes() mimetype.Set {
	return mimetype.NewSet(mimetype.RFC822, mimetype.MSMessage)
}

func (*Parser) Parse(_ context.Context, ds *datasource.DataSource, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	r, err := ds.Stream()
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "open eml source", err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.IOFailure, "read eml source", err)
	}

	env, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return message.Proceed, docerr.Wrap(docerr.UninterpretableData, "parse mail envelope", err)
	}

	subject := charset.DecodeHeader(env.Header.Get("Subject"))
	hasSubject := subject != ""
	var sentAt *time.Time
	if t, err := env.Header.Date(); err == nil {
		sentAt = &t
	}

	parts, scanErr := mimescan.New().Scan(raw)
	if scanErr != nil && logger != nil {
		logger.WithSource(ds.ID(), "eml").Warn("mimescan reported a structural issue, continuing best-effort: " + scanErr.Error())
	}

	proceed, cont, err := message.EmitOpener(emit, message.Document(func() (message.Metadata, error) {
		meta := message.Metadata{HasEmailAttrs: true}
		meta.EmailAttrs.Subject = subject
		if t, err := env.Header.Date(); err == nil {
			meta.EmailAttrs.Date = t
		}
		meta.EmailAttrs.From = env.Header.Get("From")
		return meta, nil
	}))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if !proceed {
		return cont, nil
	}

	mailProceed, cont, err := message.EmitOpener(emit, message.Mail(subject, hasSubject, sentAt, 0, false))
	if err != nil || cont == message.Stop {
		return cont, err
	}
	if mailProceed {
		bodyProceed, bodyCont, err := message.EmitOpener(emit, message.MailBody())
		if err != nil || bodyCont == message.Stop {
			return bodyCont, err
		}
		if bodyProceed {
			for _, part := range parts {
				cont, err := emitPart(ds, part, emit, logger)
				if err != nil || cont == message.Stop {
					return cont, err
				}
			}
			if cont, err := emit.Emit(message.CloseMailBody()); err != nil || cont == message.Stop {
				return cont, err
			}
		}
		if cont, err := emit.Emit(message.CloseMail()); err != nil || cont == message.Stop {
			return cont, err
		}
	}

	return emit.Emit(message.CloseDocument())
}

func emitPart(ds *datasource.DataSource, part *mimescan.Part, emit chain.Emitter, logger log.Logger) (message.Continuation, error) {
	ct := ""
	if part.ContentType != nil {
		ct = part.ContentType.String()
	}
	mainType := ct
	if i := strings.Index(ct, ";"); i >= 0 {
		mainType = ct[:i]
	}
	mainType = strings.TrimSpace(strings.ToLower(mainType))

	isAttachment := part.DispositionFileName != "" || strings.EqualFold(part.ContentDisposition, "attachment")

	if part.Body == nil {
		return message.Proceed, nil
	}

	decoded, err := encoding.DecodeTransferEncoding(part.TransferEncoding, part.Body)
	if err != nil {
		if logger != nil {
			logger.WithSource(ds.ID(), "eml").Warn("failed to decode part transfer encoding: " + err.Error())
		}
		decoded = part.Body
	}

	if isAttachment {
		name := part.DispositionFileName
		if name == "" {
			name = part.ContentName
		}
		nested := datasource.FromBuffer(decoded)
		extVal, hasExt := "", false
		if i := strings.LastIndex(name, "."); i >= 0 {
			extVal, hasExt = strings.ToLower(name[i+1:]), true
		}
		proceed, cont, err := message.EmitOpener(emit, message.Attachment(name, name != "", int64(len(decoded)), extVal, hasExt))
		if err != nil || cont == message.Stop {
			return cont, err
		}
		if !proceed {
			return cont, nil
		}
		if cont, err := emit.Emit(message.File("", false, nested, name, name != "")); err != nil || cont == message.Stop {
			return cont, err
		}
		return emit.Emit(message.CloseAttachment())
	}

	if mainType == "text/plain" || mainType == "text/html" || mainType == "" {
		text := decoded
		if part.Charset != "" && !strings.EqualFold(part.Charset, "utf-8") && !strings.EqualFold(part.Charset, "us-ascii") {
			r, err := charset.NewReader(part.Charset, bytes.NewReader(decoded))
			if err == nil {
				if converted, rerr := io.ReadAll(r); rerr == nil {
					text = converted
				}
			}
		}
		proceed, cont, err := message.EmitOpener(emit, message.Paragraph())
		if err != nil || cont == message.Stop {
			return cont, err
		}
		if !proceed {
			return cont, nil
		}
		if cont, err := emit.Emit(message.Text(string(text), nil, 0, false)); err != nil || cont == message.Stop {
			return cont, err
		}
		return emit.Emit(message.CloseParagraph())
	}

	return message.Proceed, nil
}
