package gateway

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// streamQualityPattern matches quality tokens embedded in rendition paths,
// e.g. "stream_720p/000.m3u8" or "stream480p.m3u8".
var streamQualityPattern = regexp.MustCompile(`(?i)stream[_-]?(\d+)p`)

// MasterRewriter rewrites master manifests so every variant URI points at the
// gateway's own variant endpoint instead of a storage-relative path. It is a
// pure text transform over the token sequence.
type MasterRewriter struct {
	log *slog.Logger
}

// NewMasterRewriter returns a MasterRewriter logging through log.
func NewMasterRewriter(log *slog.Logger) *MasterRewriter {
	return &MasterRewriter{log: log}
}

// Rewrite parses manifestText and replaces every relative variant URI with an
// absolute gateway endpoint carrying the inferred quality. Comments, blank
// lines, and directives pass through in original order; output line endings
// are normalized to "\n". The result is deterministic for identical inputs.
func (rw *MasterRewriter) Rewrite(manifestText, assetID string, pc ProtocolContext) string {
	tokens := Tokenize(manifestText)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case TokenDirective:
			if tok.Tag != "EXT-X-STREAM-INF" {
				continue
			}
			// The next non-blank, non-comment line is this directive's
			// variant URI; intervening comments stay in place.
			j := i + 1
			for j < len(tokens) && tokens[j].Kind != TokenURI && tokens[j].Kind != TokenDirective {
				j++
			}
			if j >= len(tokens) || tokens[j].Kind != TokenURI {
				// Malformed manifest: emit the directive as-is and keep
				// going so the remaining variants stay reachable.
				rw.log.Warn("stream-inf directive without variant uri",
					slog.String("asset_id", assetID))
				continue
			}
			uri := tokens[j].Value
			if !isAbsoluteURL(uri) {
				quality := inferQuality(uri, tok.Attributes)
				tokens[j].Value = variantEndpoint(pc, assetID, fileNameOf(uri), quality)
			}
			i = j
		case TokenURI:
			// URI outside a STREAM-INF context: same mapping, no quality.
			if !isAbsoluteURL(tok.Value) {
				tokens[i].Value = variantEndpoint(pc, assetID, fileNameOf(tok.Value), "")
			}
		}
	}

	return Serialize(tokens)
}

// inferQuality determines the quality label for a variant URI, in order:
// a streamNNNp-like token in the path, the height of a RESOLUTION=WxH
// attribute, then "auto".
func inferQuality(uri, attributes string) string {
	if m := streamQualityPattern.FindStringSubmatch(uri); m != nil {
		return m[1] + "p"
	}
	if res := DirectiveAttribute(attributes, "RESOLUTION"); res != "" {
		if x := strings.IndexAny(res, "xX"); x >= 0 {
			if h, err := strconv.Atoi(strings.TrimSpace(res[x+1:])); err == nil && h > 0 {
				return strconv.Itoa(h) + "p"
			}
		}
	}
	return "auto"
}
