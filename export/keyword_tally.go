// KeywordTally and Find supplement the four required exporters with a
// narrow, non-NLP slice of keyword/search functionality (full entity
// extraction needs an external model, the same category of collaborator
// as Tesseract/PDFium, and is out of scope here).
package export

import (
	"sort"
	"strings"

	"github.com/mailchannels/docflow/chain"
	"github.com/mailchannels/docflow/message"
)

// defaultStopWords is a deliberately small closed list; KeywordTally is
// a frequency tally over what survives it, not a stemmed/lemmatized NLP
// pipeline.
var defaultStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "is": true, "it": true, "for": true, "on": true,
	"with": true, "as": true, "at": true, "by": true, "that": true, "this": true,
}

// KeywordCount is one tallied word and how many times it occurred.
type KeywordCount struct {
	Word  string
	Count int
}

// KeywordTally accumulates word-frequency counts from every Text message
// it sees, ignoring words in its stop list. It is a chain.Terminal, so it is meant to run at the
// end of its own ParsingChain (or alongside the real exporters via a
// fan-out Decorator) rather than forwarding further.
type KeywordTally struct {
	chain.TerminalElement
	counts map[string]int
}

// NewKeywordTally returns a ready-to-use tally.
func NewKeywordTally() *KeywordTally {
	return &KeywordTally{counts: make(map[string]int)}
}

func (k *KeywordTally) Handle(msg message.Message, _, _ chain.Emitter) (message.Continuation, error) {
	if msg.Kind != message.KindText {
		return message.Proceed, nil
	}
	for _, word := range strings.Fields(msg.Text) {
		normalized := strings.ToLower(strings.Trim(word, ".,;:!?\"'()[]{}"))
		if normalized == "" || defaultStopWords[normalized] {
			continue
		}
		k.counts[normalized]++
	}
	return message.Proceed, nil
}

// Top returns the n most frequent tallied words, most frequent first,
// ties broken alphabetically for a stable result.
func (k *KeywordTally) Top(n int) []KeywordCount {
	out := make([]KeywordCount, 0, len(k.counts))
	for word, count := range k.counts {
		out = append(out, KeywordCount{Word: word, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
