package rdata

import (
	"strings"
	"unicode/utf8"
)

// MaxTXTChunk is the longest character-string a TXT value may carry.
const MaxTXTChunk = 255

// QuoteTXT wraps a TXT value in double quotes, escaping backslashes and
// quotes. Values that are already quoted are returned unchanged.
func QuoteTXT(value string) string {
	if IsQuoted(value) {
		return value
	}
	return quote(value)
}

// IsQuoted reports whether value starts and ends with a double quote.
func IsQuoted(value string) bool {
	return len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"'
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// ChunkTXT splits a value longer than MaxTXTChunk bytes into quoted chunks
// joined by a single space. Chunks never split a UTF-8 sequence, so a chunk
// may be a few bytes short of the limit. Shorter values are returned unchanged.
func ChunkTXT(value string) string {
	if len(value) <= MaxTXTChunk {
		return value
	}
	var chunks []string
	for len(value) > MaxTXTChunk {
		cut := MaxTXTChunk
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		if cut == 0 {
			// no rune boundary in reach; not valid UTF-8
			cut = MaxTXTChunk
		}
		chunks = append(chunks, quote(value[:cut]))
		value = value[cut:]
	}
	if value != "" {
		chunks = append(chunks, quote(value))
	}
	return strings.Join(chunks, " ")
}

// UnquoteTXT reverses QuoteTXT and ChunkTXT: every quoted segment is
// unescaped and the segments are concatenated. Unquoted input is returned as is.
func UnquoteTXT(value string) string {
	if !IsQuoted(value) {
		return value
	}

	var (
		out      strings.Builder
		inQuote  bool
		escaped  bool
		segments int
	)
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case escaped:
			out.WriteByte(ch)
			escaped = false
		case inQuote && ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = !inQuote
			if inQuote {
				segments++
			}
		case inQuote:
			out.WriteByte(ch)
		case ch == ' ' || ch == '\t':
		default:
			// bare text between segments is not a chunked value
			return value
		}
	}
	if inQuote || segments == 0 {
		return value
	}
	return out.String()
}
