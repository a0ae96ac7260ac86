package natives

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/IMS212/loom/internal/manifest"
)

// MarkerSuffix is appended to an artifact's cache filename to form its
// extraction marker name inside the target directory.
const MarkerSuffix = ".sha1"

// Tracker persists per-artifact extraction markers and decides whether
// an artifact's extracted contents are stale, without touching the
// network. A marker is a plain UTF-8 file holding the hex SHA-1 of the
// artifact whose contents were last unpacked; it is written strictly
// after a successful unpack, so a sync killed mid-extraction simply
// reads as stale on the next run.
type Tracker struct {
	logger Logger
}

// NewTracker creates a tracker. A nil logger disables logging.
func NewTracker(logger Logger) *Tracker {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Tracker{logger: logger}
}

// markerPath derives the marker file path for an artifact from its
// cache filename plus the fixed suffix, inside the target directory.
func markerPath(targetDir string, artifact *manifest.Artifact) string {
	return filepath.Join(targetDir, path.Base(artifact.Path)+MarkerSuffix)
}

// IsStale reports whether the artifact needs re-extraction: no marker
// exists, the marker cannot be read, or its recorded hash differs from
// the artifact's expected hash. A read error is deliberately treated as
// stale rather than fatal; the cost is re-extraction, never skipped
// verification.
func (t *Tracker) IsStale(artifact *manifest.Artifact, targetDir string) bool {
	marker := markerPath(targetDir, artifact)

	data, err := os.ReadFile(marker)
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn("failed to read extraction marker, treating as stale",
				"marker", marker, "error", err)
		}
		return true
	}

	recorded := strings.TrimSpace(string(data))
	return !strings.EqualFold(recorded, artifact.SHA1)
}

// MarkExtracted records the artifact's expected hash in its marker
// file. Call this only after the artifact's contents have been fully
// and successfully unpacked into the target directory.
func (t *Tracker) MarkExtracted(artifact *manifest.Artifact, targetDir string) error {
	marker := markerPath(targetDir, artifact)

	if err := os.WriteFile(marker, []byte(artifact.SHA1), 0o644); err != nil {
		return &FilesystemError{Path: marker, Err: err}
	}

	return nil
}
