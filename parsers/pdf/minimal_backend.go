package pdf

import (
	"strconv"
	"strings"
)

// minimalBackend recovers text runs from an uncompressed PDF by scanning
// each "stream ... endstream" content block for BT/ET text objects and
// tracking the running text-position/font-size state the Tf/Td/Tm/Tj
// operators update, walking a content stream's operator list directly.
// It has no knowledge of compressed object streams, cross-reference
// streams, or embedded fonts — anything needing those belongs behind a
// real Backend.
type minimalBackend struct{}

func (minimalBackend) Pages(data []byte) ([]Page, error) {
	var pages []Page
	for _, block := range extractStreams(string(data)) {
		if !strings.Contains(block, "BT") {
			continue
		}
		pages = append(pages, Page{Runs: extractRuns(block)})
	}
	if len(pages) == 0 {
		// No recognizable content stream; still return a single empty
		// page rather than erroring, so the pipeline can at least
		// report the document's presence.
		pages = append(pages, Page{})
	}
	return pages, nil
}

func extractStreams(doc string) []string {
	var blocks []string
	pos := 0
	for {
		start := strings.Index(doc[pos:], "stream")
		if start < 0 {
			break
		}
		start += pos + len("stream")
		for start < len(doc) && (doc[start] == '\r' || doc[start] == '\n') {
			start++
		}
		end := strings.Index(doc[start:], "endstream")
		if end < 0 {
			break
		}
		end += start
		blocks = append(blocks, doc[start:end])
		pos = end + len("endstream")
	}
	return blocks
}

// extractRuns walks whitespace-separated tokens in a content stream,
// maintaining the current text position and font size and emitting a
// Run for every Tj/TJ string-showing operator.
func extractRuns(block string) []Run {
	tokens := tokenize(block)
	var runs []Run
	var x, y, fontSize float64
	var operands []string

	for _, tok := range tokens {
		switch tok {
		case "Tf":
			if len(operands) >= 1 {
				if v, err := strconv.ParseFloat(operands[len(operands)-1], 64); err == nil {
					fontSize = v
				}
			}
			operands = nil
		case "Td", "TD":
			if len(operands) >= 2 {
				dx, err1 := strconv.ParseFloat(operands[len(operands)-2], 64)
				dy, err2 := strconv.ParseFloat(operands[len(operands)-1], 64)
				if err1 == nil && err2 == nil {
					x += dx
					y += dy
				}
			}
			operands = nil
		case "Tm":
			if len(operands) >= 6 {
				tx, err1 := strconv.ParseFloat(operands[len(operands)-2], 64)
				ty, err2 := strconv.ParseFloat(operands[len(operands)-1], 64)
				if err1 == nil && err2 == nil {
					x, y = tx, ty
				}
			}
			operands = nil
		case "Tj":
			if s, ok := lastString(operands); ok {
				runs = append(runs, Run{Text: s, X: x, Y: y, FontSize: fontSize})
				x += float64(len(s)) * fontSize
			}
			operands = nil
		case "TJ":
			for _, s := range allStrings(operands) {
				runs = append(runs, Run{Text: s, X: x, Y: y, FontSize: fontSize})
				x += float64(len(s)) * fontSize
			}
			operands = nil
		case "BT":
			x, y = 0, 0
			operands = nil
		case "ET":
			operands = nil
		default:
			operands = append(operands, tok)
		}
	}
	return runs
}

// tokenize splits a content stream into whitespace-separated tokens,
// keeping "(a literal string with spaces)" and "[array entries]" intact
// as single tokens rather than splitting on the spaces inside them.
func tokenize(block string) []string {
	var tokens []string
	var cur strings.Builder
	depthParen := 0
	depthBracket := 0
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range block {
		switch {
		case r == '(':
			depthParen++
			cur.WriteRune(r)
		case r == ')':
			depthParen--
			cur.WriteRune(r)
			if depthParen == 0 && depthBracket == 0 {
				flush()
			}
		case r == '[':
			depthBracket++
			cur.WriteRune(r)
		case r == ']':
			depthBracket--
			cur.WriteRune(r)
			if depthBracket == 0 && depthParen == 0 {
				flush()
			}
		case (r == ' ' || r == '\n' || r == '\r' || r == '\t') && depthParen == 0 && depthBracket == 0:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// lastString returns the literal-string contents of the last "(...)"
// token among operands, the sole operand Tj expects.
func lastString(operands []string) (string, bool) {
	for i := len(operands) - 1; i >= 0; i-- {
		if s, ok := stripParens(operands[i]); ok {
			return s, true
		}
	}
	return "", false
}

// allStrings extracts every literal-string run out of a TJ array
// operand, ignoring the numeric kerning adjustments interspersed with
// them.
func allStrings(operands []string) []string {
	var out []string
	for _, tok := range operands {
		trimmed := strings.Trim(tok, "[]")
		start := 0
		for start < len(trimmed) {
			open := strings.IndexByte(trimmed[start:], '(')
			if open < 0 {
				break
			}
			open += start
			closeIdx := strings.IndexByte(trimmed[open:], ')')
			if closeIdx < 0 {
				break
			}
			closeIdx += open
			out = append(out, trimmed[open+1:closeIdx])
			start = closeIdx + 1
		}
	}
	return out
}

func stripParens(tok string) (string, bool) {
	if len(tok) >= 2 && tok[0] == '(' && tok[len(tok)-1] == ')' {
		return tok[1 : len(tok)-1], true
	}
	return "", false
}
