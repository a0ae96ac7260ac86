package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Parse decodes version metadata from JSON and validates it.
func Parse(r io.Reader) (*VersionMeta, error) {
	var meta VersionMeta

	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode version manifest: %w", err)
	}

	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid version manifest: %w", err)
	}

	return &meta, nil
}

// Load reads and parses version metadata from a file.
func Load(path string) (*VersionMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open version manifest: %w", err)
	}
	defer f.Close()

	meta, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return meta, nil
}

// Validate checks structural consistency of the manifest. Download
// entries must carry a URL, a relative storage path, and a well-formed
// SHA-1 so the sync layer can rely on them without re-checking.
func (m *VersionMeta) Validate() error {
	for i := range m.Libraries {
		lib := &m.Libraries[i]

		if lib.Name == "" {
			return fmt.Errorf("library %d has no name", i)
		}

		for key, artifact := range lib.Downloads.Classifiers {
			if artifact == nil {
				continue
			}
			if err := validateArtifact(artifact); err != nil {
				return fmt.Errorf("library %s classifier %s: %w", lib.Name, key, err)
			}
		}

		if lib.Downloads.Artifact != nil {
			if err := validateArtifact(lib.Downloads.Artifact); err != nil {
				return fmt.Errorf("library %s artifact: %w", lib.Name, err)
			}
		}
	}

	return nil
}

func validateArtifact(a *Artifact) error {
	if a.URL == "" {
		return fmt.Errorf("missing url")
	}
	if a.Path == "" {
		return fmt.Errorf("missing path")
	}
	// Paths are joined under the cache root; absolute paths and ".."
	// segments would let a manifest write outside it.
	if !filepath.IsLocal(filepath.FromSlash(a.Path)) {
		return fmt.Errorf("path %q escapes the cache root", a.Path)
	}
	if !isHexSHA1(a.SHA1) {
		return fmt.Errorf("malformed sha1 %q", a.SHA1)
	}
	return nil
}

// isHexSHA1 reports whether s is a 40-character hex string, either case.
func isHexSHA1(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
