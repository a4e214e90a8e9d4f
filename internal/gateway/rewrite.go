package gateway

import (
	"net/url"
	"strings"
)

// Accepted media segment extensions, shared by the variant rewriter and the
// segment proxy's file-name validation.
var segmentExtensions = map[string]bool{
	".ts":  true,
	".m4s": true,
	".mp4": true,
	".aac": true,
}

// IsSegmentFileName reports whether name carries an accepted segment extension.
func IsSegmentFileName(name string) bool {
	return segmentExtensions[strings.ToLower(fileExtension(name))]
}

// isAbsoluteURL reports whether a playlist URI is already absolute
// (http://, https://, or protocol-relative //) and must pass through unchanged.
func isAbsoluteURL(uri string) bool {
	lower := strings.ToLower(uri)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(uri, "//")
}

// fileNameOf returns the last path segment of a playlist URI, with any query
// string or fragment stripped.
func fileNameOf(uri string) string {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		uri = uri[i+1:]
	}
	return uri
}

// fileExtension returns the lowercased extension of a file name including the
// dot, or "" when there is none.
func fileExtension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// variantEndpoint builds the absolute gateway URL for a variant playlist.
// quality is appended as a query parameter when non-empty.
func variantEndpoint(pc ProtocolContext, assetID, fileName, quality string) string {
	u := pc.BaseURL() + "/media/" + assetID + "/variants/" + url.PathEscape(fileName)
	if quality != "" {
		u += "?quality=" + url.QueryEscape(quality)
	}
	return u
}

// segmentEndpoint builds the absolute gateway URL for a media segment.
func segmentEndpoint(pc ProtocolContext, assetID, fileName, quality string) string {
	u := pc.BaseURL() + "/media/" + assetID + "/segments/" + url.PathEscape(fileName)
	if quality != "" {
		u += "?quality=" + url.QueryEscape(quality)
	}
	return u
}
