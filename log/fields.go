package log

import (
	"github.com/sirupsen/logrus"

	"github.com/mailchannels/docflow/datasource"
	"github.com/mailchannels/docflow/docerr"
	"github.com/mailchannels/docflow/message"
)

// MessageFields builds the structured fields for logging one message.Message:
// one field set per loggable type, the idiomatic stand-in for a
// field-adapter-per-type pattern.
func MessageFields(msg message.Message) logrus.Fields {
	f := logrus.Fields{"kind": msg.Kind.String()}
	if msg.Text != "" {
		f["text_len"] = len(msg.Text)
	}
	switch {
	case msg.File != nil:
		f["file_name"] = msg.File.Name
	case msg.Attachment != nil:
		f["attachment_name"] = msg.Attachment.Name
		f["attachment_size"] = msg.Attachment.HumanSize
		f["correlation_id"] = msg.Attachment.CorrelationID
	case msg.Mail != nil:
		f["mail_subject"] = msg.Mail.Subject
		f["correlation_id"] = msg.Mail.CorrelationID
	}
	return f
}

// DataSourceFields builds the structured fields for logging a
// datasource.DataSource.
func DataSourceFields(ds *datasource.DataSource) logrus.Fields {
	f := logrus.Fields{"source_id": ds.ID()}
	if ext, ok := ds.FileExtension(); ok {
		f["extension"] = ext
	}
	if t, confidence, ok := ds.HighestMimeTypeConfidence(); ok {
		f["mime_type"] = string(t)
		f["mime_confidence"] = int(confidence)
	}
	return f
}

// ErrorFields builds the structured fields for logging a docerr.Error.
func ErrorFields(err *docerr.Error) logrus.Fields {
	f := logrus.Fields{"error_kind": err.Kind.String()}
	for _, frame := range err.Frames {
		for k, v := range frame {
			f["ctx_"+k] = v
		}
	}
	return f
}
