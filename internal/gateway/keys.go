package gateway

import (
	"context"
	"log/slog"
	"strings"
)

// ExistsFunc probes one candidate key for existence. A missing key is
// (false, nil); any other failure is an error.
type ExistsFunc func(ctx context.Context, key string) (bool, error)

// NormalizeQuality maps a client quality hint to the canonical "{n}p" form:
// "720" and "720p" both become "720p". Empty, "auto", and non-numeric hints
// are treated as absent and yield "".
func NormalizeQuality(hint string) string {
	q := strings.ToLower(strings.TrimSpace(hint))
	if q == "" || q == "auto" {
		return ""
	}
	q = strings.TrimSuffix(q, "p")
	if q == "" {
		return ""
	}
	for _, r := range q {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return q + "p"
}

// Candidates returns the ordered storage keys considered plausible locations
// for fileName under basePath. Different packaging runs have historically
// placed files directly under the quality folder, under a shared variants/
// folder, or flat; the tiers below tolerate that layout drift without a data
// migration. The result is deterministic for identical inputs.
func Candidates(basePath, fileName, qualityHint string) []string {
	quality := NormalizeQuality(qualityHint)
	if quality == "" {
		return []string{
			basePath + "variants/" + fileName,
			basePath + fileName,
		}
	}
	return []string{
		basePath + "stream_" + quality + "/variants/" + fileName,
		basePath + "variants/stream_" + quality + "/" + fileName,
		basePath + "stream_" + quality + "/" + fileName,
		basePath + "variants/" + fileName,
		basePath + fileName,
	}
}

// FirstExisting walks candidates strictly in order and returns the first key
// whose probe answers true. A probe reporting "not found" moves on to the
// next candidate; a probe failing for any other reason is logged and also
// treated as "try next". When no candidate resolves, the error reflects only
// the outcome of the last attempted candidate: a StorageError if its probe
// failed, ErrObjectNotFound otherwise.
func FirstExisting(ctx context.Context, probe ExistsFunc, candidates []string, log *slog.Logger) (string, error) {
	var lastErr *StorageError
	for _, key := range candidates {
		ok, err := probe(ctx, key)
		if err != nil {
			log.Warn("candidate probe failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
			lastErr = &StorageError{Key: key, Err: err}
			continue
		}
		lastErr = nil
		if ok {
			return key, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrObjectNotFound
}
