package gateway

import (
	"fmt"
	"strings"
)

// AssetStatus is the processing state of a media asset. Manifests and
// segments are servable only in StatusReady.
type AssetStatus string

const (
	StatusUploading  AssetStatus = "uploading"
	StatusProcessing AssetStatus = "processing"
	StatusReady      AssetStatus = "ready"
	StatusFailed     AssetStatus = "failed"
)

// MediaAsset is one uploaded video as recorded by the upload/transcoding
// collaborator. The gateway only reads it.
type MediaAsset struct {
	ID                string
	OwnerID           string
	Status            AssetStatus
	MasterManifestKey string // storage key of the master manifest; empty until recorded
	DurationSeconds   float64
}

// BasePath returns the storage-key directory holding the asset's manifest and
// renditions: the directory of MasterManifestKey when recorded, otherwise the
// conventional hls/{ownerId}/{id}/ layout. The result always ends in "/"
// unless the master key sits at the bucket root.
func (a *MediaAsset) BasePath() string {
	if a.MasterManifestKey != "" {
		if i := strings.LastIndex(a.MasterManifestKey, "/"); i >= 0 {
			return a.MasterManifestKey[:i+1]
		}
		return ""
	}
	return fmt.Sprintf("hls/%s/%s/", a.OwnerID, a.ID)
}

// MasterFileName returns the file name of the asset's master manifest:
// the last path segment of MasterManifestKey, or "master.m3u8" when no key
// has been recorded yet.
func (a *MediaAsset) MasterFileName() string {
	if a.MasterManifestKey != "" {
		if i := strings.LastIndex(a.MasterManifestKey, "/"); i >= 0 {
			return a.MasterManifestKey[i+1:]
		}
		return a.MasterManifestKey
	}
	return "master.m3u8"
}

// VariantDescriptor is a logical rendition referenced from a master manifest.
// It is derived transiently while rewriting and never persisted.
type VariantDescriptor struct {
	QualityLabel     string // e.g. "720p", "auto"
	Bandwidth        int64
	ResolutionWidth  int
	ResolutionHeight int
	RelativeFileName string
}
