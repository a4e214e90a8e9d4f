package gateway

import "strings"

// TokenKind classifies one manifest line.
type TokenKind int

const (
	TokenBlank TokenKind = iota
	TokenComment
	TokenDirective
	TokenURI
)

// ManifestToken is one parsed line of an HLS playlist. Rewriting operates on
// token sequences, never on regex substitution over the whole text.
type ManifestToken struct {
	Kind TokenKind

	// Raw is the original line with line-ending characters stripped.
	// Serialization emits Raw for every kind except TokenURI.
	Raw string

	// Tag and Attributes are set for TokenDirective: the tag name without
	// the leading "#" (e.g. "EXT-X-STREAM-INF") and the raw attribute
	// payload after the colon.
	Tag        string
	Attributes string

	// Value is set for TokenURI: the trimmed URI. Rewriters replace it.
	Value string
}

// Tokenize splits manifest text into a token per line. Line endings are
// dropped; Serialize re-joins with "\n", which normalizes CRLF input.
func Tokenize(text string) []ManifestToken {
	lines := strings.Split(text, "\n")
	tokens := make([]ManifestToken, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			tokens = append(tokens, ManifestToken{Kind: TokenBlank, Raw: line})
		case strings.HasPrefix(trimmed, "#EXT"):
			tag, attrs, _ := strings.Cut(strings.TrimPrefix(trimmed, "#"), ":")
			tokens = append(tokens, ManifestToken{
				Kind:       TokenDirective,
				Raw:        line,
				Tag:        tag,
				Attributes: attrs,
			})
		case strings.HasPrefix(trimmed, "#"):
			tokens = append(tokens, ManifestToken{Kind: TokenComment, Raw: line})
		default:
			tokens = append(tokens, ManifestToken{Kind: TokenURI, Raw: line, Value: trimmed})
		}
	}

	return tokens
}

// Serialize re-joins tokens into manifest text with "\n" endings. URI tokens
// emit their (possibly rewritten) Value; everything else passes through Raw
// unchanged.
func Serialize(tokens []ManifestToken) string {
	lines := make([]string, len(tokens))
	for i, tok := range tokens {
		if tok.Kind == TokenURI {
			lines[i] = tok.Value
		} else {
			lines[i] = tok.Raw
		}
	}
	return strings.Join(lines, "\n")
}

// DirectiveAttribute extracts the value of the named attribute from a
// directive's attribute payload, honoring quoted values that may contain
// commas. The returned value has surrounding quotes removed. Missing
// attributes yield "".
func DirectiveAttribute(attributes, name string) string {
	rest := attributes
	for rest != "" {
		var pair string
		pair, rest = cutAttribute(rest)
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return ""
}

// cutAttribute splits off the first key=value pair at a comma outside quotes.
func cutAttribute(s string) (pair, rest string) {
	inQuotes := false
	for i, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
