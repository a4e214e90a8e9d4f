package gateway

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hls-gateway/internal/storage"

	"github.com/go-chi/chi/v5"
)

const (
	testAssetID  = "7b0c8f9e-4a2d-4c5e-9f2a-1b3c5d7e9f01"
	testBasePath = "hls/u1/" + testAssetID + "/"
)

func newTestRouter(repo AssetRepository, store storage.ObjectStore) *chi.Mux {
	h := NewHandler(repo, store, discardLogger(), nil)
	r := chi.NewRouter()
	r.Route("/media/{asset_id}", func(r chi.Router) {
		r.Get("/master.m3u8", h.GetMasterManifest)
		r.Get("/variants/{file}", h.GetVariantPlaylist)
		r.Get("/segments/{file}", h.GetSegment)
	})
	return r
}

func newReadyAsset() MediaAsset {
	return MediaAsset{
		ID:                testAssetID,
		OwnerID:           "u1",
		Status:            StatusReady,
		MasterManifestKey: testBasePath + "master.m3u8",
		DurationSeconds:   120,
	}
}

func TestHandler_master_end_to_end(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())

	store := storage.NewMemoryStore()
	master := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=854x480\n" +
		"stream_480p/000.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720\n" +
		"stream_720p/000.m3u8\n"
	store.Put(testBasePath+"master.m3u8", []byte(master), "application/vnd.apple.mpegurl")

	r := newTestRouter(repo, store)

	req := httptest.NewRequest(http.MethodGet, "http://gw.example.com/media/"+testAssetID+"/master.m3u8", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.apple.mpegurl" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Errorf("expected no-cache response, got %q", cc)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "https://gw.example.com/media/"+testAssetID+"/variants/000.m3u8?quality=480p") {
		t.Errorf("missing 480p variant url:\n%s", body)
	}
	if !strings.Contains(body, "https://gw.example.com/media/"+testAssetID+"/variants/000.m3u8?quality=720p") {
		t.Errorf("missing 720p variant url:\n%s", body)
	}

	// Absolute-URL invariant: every non-comment, non-blank line that is not
	// a directive must point at this gateway's host.
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "https://gw.example.com/") {
			t.Errorf("uri does not reference the gateway host: %q", line)
		}
	}
}

func TestHandler_master_without_recorded_key(t *testing.T) {
	asset := newReadyAsset()
	asset.MasterManifestKey = ""
	repo := NewInMemoryAssetRepository()
	repo.Put(asset)

	store := storage.NewMemoryStore()
	store.Put(testBasePath+"index.m3u8", []byte("#EXTM3U\n"), "")

	r := newTestRouter(repo, store)

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/master.m3u8", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 via conventional base path, got %d", rec.Code)
	}
}

func TestHandler_variant_rewrite(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())

	store := storage.NewMemoryStore()
	playlist := "#EXTM3U\n#EXTINF:4.0,\n000.ts\n"
	store.Put(testBasePath+"stream_720p/variants/000.m3u8", []byte(playlist), "")

	r := newTestRouter(repo, store)

	req := httptest.NewRequest(http.MethodGet, "http://gw.example.com/media/"+testAssetID+"/variants/000.m3u8?quality=720p", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "http://gw.example.com/media/"+testAssetID+"/segments/000.ts?quality=720p") {
		t.Errorf("segment uri not rewritten:\n%s", rec.Body.String())
	}
}

func TestHandler_variant_bad_extension(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())
	r := newTestRouter(repo, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/variants/000.ts", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_segment_range(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())

	store := storage.NewMemoryStore()
	store.Put(testBasePath+"stream_720p/variants/000.ts", bytes.Repeat([]byte{0xAB}, 1000), "video/mp2t")

	r := newTestRouter(repo, store)

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/segments/000.ts?quality=720p", nil)
	req.Header.Set("Range", "bytes=0-99")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", rec.Code)
	}
	if cr := rec.Header().Get("Content-Range"); cr != "bytes 0-99/1000" {
		t.Errorf("unexpected Content-Range %q", cr)
	}
	if cl := rec.Header().Get("Content-Length"); cl != "100" {
		t.Errorf("unexpected Content-Length %q", cl)
	}
	if ar := rec.Header().Get("Accept-Ranges"); ar != "bytes" {
		t.Errorf("unexpected Accept-Ranges %q", ar)
	}
	if rec.Body.Len() != 100 {
		t.Errorf("expected 100 body bytes, got %d", rec.Body.Len())
	}
}

func TestHandler_segment_full(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())

	store := storage.NewMemoryStore()
	store.Put(testBasePath+"000.ts", []byte("segment-bytes"), "video/mp2t")

	r := newTestRouter(repo, store)

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/segments/000.ts", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "video/mp2t" {
		t.Errorf("expected storage content type forwarded, got %q", ct)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("expected ETag forwarded from storage")
	}
	if rec.Header().Get("Last-Modified") == "" {
		t.Error("expected Last-Modified forwarded from storage")
	}
	if rec.Body.String() != "segment-bytes" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_segment_quality_fallback(t *testing.T) {
	// Only the flat key exists; the quality-prefixed candidates miss and the
	// unqualified fallback serves the bytes.
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())

	store := storage.NewMemoryStore()
	store.Put(testBasePath+"000.ts", []byte("fallback"), "")

	r := newTestRouter(repo, store)

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/segments/000.ts?quality=480p", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 via fallback candidate, got %d", rec.Code)
	}
	if rec.Body.String() != "fallback" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_segment_bad_extension(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())
	r := newTestRouter(repo, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/segments/000.exe", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid extension, got %d", rec.Code)
	}
}

func TestHandler_not_ready_gates_all_routes(t *testing.T) {
	asset := newReadyAsset()
	asset.Status = StatusProcessing
	repo := NewInMemoryAssetRepository()
	repo.Put(asset)

	// The manifest object exists; readiness must still gate the request.
	store := storage.NewMemoryStore()
	store.Put(testBasePath+"master.m3u8", []byte("#EXTM3U\n"), "")
	store.Put(testBasePath+"000.ts", []byte("x"), "")

	r := newTestRouter(repo, store)

	paths := []string{
		"/media/" + testAssetID + "/master.m3u8",
		"/media/" + testAssetID + "/variants/000.m3u8",
		"/media/" + testAssetID + "/segments/000.ts",
	}
	for _, p := range paths {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusLocked {
			t.Errorf("%s: expected 423, got %d", p, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), string(StatusProcessing)) {
			t.Errorf("%s: 423 body should carry the current status, got %q", p, rec.Body.String())
		}
	}
}

func TestHandler_invalid_asset_id(t *testing.T) {
	r := newTestRouter(NewInMemoryAssetRepository(), storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/media/not-a-uuid/master.m3u8", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_asset_not_found(t *testing.T) {
	r := newTestRouter(NewInMemoryAssetRepository(), storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/master.m3u8", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_segment_not_found(t *testing.T) {
	repo := NewInMemoryAssetRepository()
	repo.Put(newReadyAsset())
	r := newTestRouter(repo, storage.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/media/"+testAssetID+"/segments/000.ts", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after exhausting candidates, got %d", rec.Code)
	}
}
