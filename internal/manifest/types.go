// Package manifest models the version metadata that declares which
// artifacts a game version needs, including the per-OS native-library
// classifiers this tool exists to sync.
package manifest

import (
	"fmt"
	"strings"

	"github.com/IMS212/loom/internal/platform"
)

// archToken is expanded in classifier keys with the host pointer width,
// e.g. "natives-windows-${arch}" becomes "natives-windows-64".
const archToken = "${arch}"

// VersionMeta is the parsed version manifest.
type VersionMeta struct {
	ID        string    `json:"id"`
	Libraries []Library `json:"libraries"`
}

// Library is a single manifest entry. Entries with native payloads carry
// a natives map from OS name to classifier key and a matching download
// classifier per key.
type Library struct {
	Name      string            `json:"name"`
	Natives   map[string]string `json:"natives,omitempty"`
	Downloads Downloads         `json:"downloads"`
}

// Downloads holds the downloadable files of a library.
type Downloads struct {
	Artifact    *Artifact            `json:"artifact,omitempty"`
	Classifiers map[string]*Artifact `json:"classifiers,omitempty"`
}

// Artifact is a downloadable file identified by URL and content hash.
// Path is the artifact's storage path relative to a cache root, using
// forward slashes as in the manifest.
type Artifact struct {
	Name string `json:"-"` // library name plus classifier, set during lookup
	Path string `json:"path"`
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// HasNativesFor reports whether the library declares a native payload
// for the given OS name.
func (l *Library) HasNativesFor(os string) bool {
	if l.Natives == nil {
		return false
	}
	return l.Natives[os] != ""
}

// ClassifierFor resolves the native-payload artifact for the given host,
// expanding the ${arch} token in the classifier key with the pointer
// width. Returns nil when the library declares no natives for the host's
// OS or the resolved classifier has no download entry.
func (l *Library) ClassifierFor(info *platform.Info) *Artifact {
	if info == nil || !l.HasNativesFor(info.OS) {
		return nil
	}

	key := strings.ReplaceAll(l.Natives[info.OS], archToken, info.Arch)
	artifact, ok := l.Downloads.Classifiers[key]
	if !ok || artifact == nil {
		return nil
	}

	resolved := *artifact
	resolved.Name = fmt.Sprintf("%s:%s", l.Name, key)
	return &resolved
}

// NativesFor filters the manifest to the native-payload artifacts
// applicable to the given host, in manifest order. An empty result is
// valid data, not an error; the caller decides whether natives were
// expected at all.
func NativesFor(meta *VersionMeta, info *platform.Info) []Artifact {
	var natives []Artifact

	for i := range meta.Libraries {
		if artifact := meta.Libraries[i].ClassifierFor(info); artifact != nil {
			natives = append(natives, *artifact)
		}
	}

	return natives
}
