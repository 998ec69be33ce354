package export

import (
	"regexp"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/message"
)

// Match is one Find hit: the Text message it occurred in and the byte
// offset within that message's text where the match starts.
type Match struct {
	Message message.Message
	Offset  int
	Text    string
}

// Find is a terminal-adjacent element reporting every match of a regular
// expression against Text message content. It still forwards every
// message unchanged, since a search is typically one stage of a larger
// pipeline rather than the final consumer — unlike the other export
// elements it does not embed chain.TerminalElement.
type Find struct {
	re      *regexp.Regexp
	matches []Match
}

// NewFind compiles pattern as a regular expression; an invalid pattern
// is returned as the second value rather than panicking.
func NewFind(pattern string) (*Find, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Find{re: re}, nil
}

func (f *Find) Handle(msg message.Message, next, _ chain.Emitter) (message.Continuation, error) {
	if msg.Kind == message.KindText {
		for _, loc := range f.re.FindAllStringIndex(msg.Text, -1) {
			f.matches = append(f.matches, Match{Message: msg, Offset: loc[0], Text: msg.Text[loc[0]:loc[1]]})
		}
	}
	return next.Emit(msg)
}

// Matches returns every match accumulated so far.
func (f *Find) Matches() []Match {
	return f.matches
}
