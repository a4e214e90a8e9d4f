package gateway

import (
	"log/slog"
	"strings"
)

// VariantRewriter rewrites variant (rendition) playlists so every segment URI
// points at the gateway's segment endpoint. Like MasterRewriter it is a pure
// text transform; locating the variant object in storage is the caller's job.
type VariantRewriter struct {
	log *slog.Logger
}

// NewVariantRewriter returns a VariantRewriter logging through log.
func NewVariantRewriter(log *slog.Logger) *VariantRewriter {
	return &VariantRewriter{log: log}
}

// Rewrite parses variantText and maps each URI line by file extension:
// media segments (.ts, .m4s, .mp4, .aac) to the segment endpoint, nested
// .m3u8 sub-playlists to the variant endpoint, both carrying qualityHint.
// Absolute URIs pass through unchanged; any other form is left as the trimmed
// original and logged as unexpected. Line endings are normalized to "\n".
func (rw *VariantRewriter) Rewrite(variantText, assetID, qualityHint string, pc ProtocolContext) string {
	quality := NormalizeQuality(qualityHint)
	tokens := Tokenize(variantText)

	for i, tok := range tokens {
		if tok.Kind != TokenURI || isAbsoluteURL(tok.Value) {
			continue
		}

		name := fileNameOf(tok.Value)
		switch ext := strings.ToLower(fileExtension(name)); {
		case segmentExtensions[ext]:
			tokens[i].Value = segmentEndpoint(pc, assetID, name, quality)
		case ext == ".m3u8":
			tokens[i].Value = variantEndpoint(pc, assetID, name, quality)
		default:
			rw.log.Warn("unexpected uri in variant playlist",
				slog.String("asset_id", assetID),
				slog.String("uri", tok.Value))
		}
	}

	return Serialize(tokens)
}
