package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"hls-gateway/internal/platform/metrics"
	"hls-gateway/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const manifestContentType = "application/vnd.apple.mpegurl"

// Fallbacks when storage does not supply a content type.
var segmentContentTypes = map[string]string{
	".ts":  "video/mp2t",
	".m4s": "video/iso.segment",
	".mp4": "video/mp4",
	".aac": "audio/aac",
}

// Handler exposes the gateway HTTP endpoints using go-chi: master manifest,
// variant playlists, and segment proxying. It holds no request-spanning
// mutable state; the store and repository are injected once at startup and
// shared by reference.
type Handler struct {
	repo    AssetRepository
	store   storage.ObjectStore
	master  *MasterRewriter
	variant *VariantRewriter
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler over the given repository and object store.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(repo AssetRepository, store storage.ObjectStore, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		repo:    repo,
		store:   store,
		master:  NewMasterRewriter(log),
		variant: NewVariantRewriter(log),
		log:     log,
		metrics: m,
	}
}

// GetMasterManifest handles GET /media/{asset_id}/master.m3u8.
func (h *Handler) GetMasterManifest(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.loadReadyAsset(w, r)
	if !ok {
		return
	}

	key, err := h.resolveMasterKey(r.Context(), asset)
	if err != nil {
		h.writeResolveError(w, err, asset.ID, "master.m3u8", "")
		return
	}

	h.serveRewrittenManifest(w, r, asset, key, "", "master")
}

// GetVariantPlaylist handles GET /media/{asset_id}/variants/{file}?quality=.
func (h *Handler) GetVariantPlaylist(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.loadReadyAsset(w, r)
	if !ok {
		return
	}

	file := chi.URLParam(r, "file")
	if !strings.HasSuffix(strings.ToLower(file), ".m3u8") {
		h.writeError(w, http.StatusBadRequest, "invalid playlist file name")
		return
	}

	quality := r.URL.Query().Get("quality")
	key, err := FirstExisting(r.Context(), h.probe, Candidates(asset.BasePath(), file, quality), h.log)
	if err != nil {
		h.writeResolveError(w, err, asset.ID, file, quality)
		return
	}

	h.serveRewrittenManifest(w, r, asset, key, quality, "variant")
}

// GetSegment handles GET /media/{asset_id}/segments/{file}?quality=, honoring
// an optional Range header.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	if !IsSegmentFileName(file) {
		h.writeError(w, http.StatusBadRequest, ErrInvalidSegmentName.Error())
		return
	}

	asset, ok := h.loadReadyAsset(w, r)
	if !ok {
		return
	}

	quality := r.URL.Query().Get("quality")
	rangeHeader := r.Header.Get("Range")

	// The candidate walk requests each object directly, forwarding the
	// Range header verbatim, and streams the first body that resolves.
	var lastErr error
	for _, key := range Candidates(asset.BasePath(), file, quality) {
		obj, err := h.store.Get(r.Context(), key, rangeHeader)
		if errors.Is(err, storage.ErrNotFound) {
			h.countProbe("miss")
			lastErr = nil
			continue
		}
		if err != nil {
			h.countProbe("error")
			h.log.Warn("segment candidate failed",
				slog.String("asset_id", asset.ID),
				slog.String("file", file),
				slog.String("key", key),
				slog.String("error", err.Error()))
			lastErr = &StorageError{Key: key, Err: err}
			continue
		}
		h.countProbe("hit")
		h.streamSegment(w, obj, file, rangeHeader)
		return
	}

	if lastErr != nil {
		h.writeResolveError(w, lastErr, asset.ID, file, quality)
		return
	}
	h.writeResolveError(w, ErrObjectNotFound, asset.ID, file, quality)
}

// streamSegment writes obj to the client without buffering the body: io.Copy
// pipes storage bytes straight to the response, and the request-scoped
// context passed to the store tears the upstream read down on client abort.
func (h *Handler) streamSegment(w http.ResponseWriter, obj *storage.Object, file, rangeHeader string) {
	defer obj.Body.Close()

	setNoCache(w)
	w.Header().Set("Accept-Ranges", "bytes")

	contentType := obj.ContentType
	if contentType == "" {
		contentType = segmentContentTypes[strings.ToLower(fileExtension(file))]
	}
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if obj.ETag != "" {
		w.Header().Set("ETag", obj.ETag)
	}
	if !obj.LastModified.IsZero() {
		w.Header().Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	}
	if obj.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength, 10))
	}

	if rangeHeader != "" && obj.ContentRange != "" {
		w.Header().Set("Content-Range", obj.ContentRange)
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	n, err := io.Copy(w, obj.Body)
	if h.metrics != nil {
		h.metrics.IncSegmentsServed()
		h.metrics.AddSegmentBytes(n)
	}
	if err != nil {
		h.log.Debug("segment stream interrupted",
			slog.Int64("bytes_written", n),
			slog.String("error", err.Error()))
	}
}

// serveRewrittenManifest fetches the manifest object at key, rewrites it for
// the requesting client's protocol context, and writes it out. kind is
// "master" or "variant".
func (h *Handler) serveRewrittenManifest(w http.ResponseWriter, r *http.Request, asset *MediaAsset, key, quality, kind string) {
	obj, err := h.store.Get(r.Context(), key, "")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// The object vanished between probe and read.
			h.writeResolveError(w, ErrObjectNotFound, asset.ID, key, quality)
			return
		}
		h.writeResolveError(w, &StorageError{Key: key, Err: err}, asset.ID, key, quality)
		return
	}
	defer obj.Body.Close()

	text, err := io.ReadAll(obj.Body)
	if err != nil {
		h.writeResolveError(w, &StorageError{Key: key, Err: err}, asset.ID, key, quality)
		return
	}

	pc := ProtocolContextFrom(r)
	var rewritten string
	if kind == "master" {
		rewritten = h.master.Rewrite(string(text), asset.ID, pc)
	} else {
		rewritten = h.variant.Rewrite(string(text), asset.ID, quality, pc)
	}
	if h.metrics != nil {
		h.metrics.IncManifestsRewritten(kind)
	}

	setNoCache(w)
	w.Header().Set("Content-Type", manifestContentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rewritten))
}

// resolveMasterKey locates the asset's master manifest. With a recorded
// master key its own directory and file name seed the candidate walk; without
// one the conventional base path is probed for the usual manifest names.
func (h *Handler) resolveMasterKey(ctx context.Context, asset *MediaAsset) (string, error) {
	base := asset.BasePath()

	names := []string{asset.MasterFileName()}
	if asset.MasterManifestKey == "" {
		names = []string{"master.m3u8", "index.m3u8"}
	}

	var lastErr error
	for _, name := range names {
		key, err := FirstExisting(ctx, h.probe, Candidates(base, name, ""), h.log)
		if err == nil {
			return key, nil
		}
		lastErr = err
		if !errors.Is(err, ErrObjectNotFound) {
			break
		}
	}
	return "", lastErr
}

// loadReadyAsset validates the asset id, loads the asset, and enforces the
// readiness gate. It writes the error response itself and returns ok false
// when the request must not proceed.
func (h *Handler) loadReadyAsset(w http.ResponseWriter, r *http.Request) (*MediaAsset, bool) {
	id := chi.URLParam(r, "asset_id")
	if _, err := uuid.Parse(id); err != nil {
		h.log.Debug("rejected request", slog.String("asset_id", id),
			slog.String("error", ErrInvalidIdentifier.Error()))
		h.writeError(w, http.StatusBadRequest, ErrInvalidIdentifier.Error())
		return nil, false
	}

	asset, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, ErrAssetNotFound) {
		h.writeError(w, http.StatusNotFound, "asset not found")
		return nil, false
	}
	if err != nil {
		h.log.Error("asset lookup failed",
			slog.String("asset_id", id),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}

	if asset.Status != StatusReady {
		notReady := &NotReadyError{Status: asset.Status}
		h.log.Info("asset not ready",
			slog.String("asset_id", id),
			slog.String("error", notReady.Error()))
		h.writeNotReady(w, notReady)
		return nil, false
	}

	return asset, true
}

// probe adapts the object store's existence check into an ExistsFunc that
// also records probe outcome metrics.
func (h *Handler) probe(ctx context.Context, key string) (bool, error) {
	ok, err := h.store.Exists(ctx, key)
	switch {
	case err != nil:
		h.countProbe("error")
	case ok:
		h.countProbe("hit")
	default:
		h.countProbe("miss")
	}
	return ok, err
}

func (h *Handler) countProbe(outcome string) {
	if h.metrics != nil {
		h.metrics.IncStorageProbe(outcome)
	}
}

// writeResolveError translates a key-resolution or storage failure into an
// HTTP response, logging asset id, file, and quality first. Internal key
// paths are never exposed to the client.
func (h *Handler) writeResolveError(w http.ResponseWriter, err error, assetID, file, quality string) {
	var se *StorageError
	if errors.As(err, &se) {
		h.log.Error("storage error",
			slog.String("asset_id", assetID),
			slog.String("file", file),
			slog.String("quality", quality),
			slog.String("error", se.Error()))
		h.writeError(w, http.StatusInternalServerError, "storage error")
		return
	}

	h.log.Info("object not found",
		slog.String("asset_id", assetID),
		slog.String("file", file),
		slog.String("quality", quality))
	h.writeError(w, http.StatusNotFound, "not found")
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (h *Handler) writeNotReady(w http.ResponseWriter, notReady *NotReadyError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusLocked)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  "asset not ready",
		"status": string(notReady.Status),
	})
}

// setNoCache marks the response uncacheable. Rewritten URLs are
// host-dependent, so intermediaries must never cache them.
func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
