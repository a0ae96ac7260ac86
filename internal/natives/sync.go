package natives

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/IMS212/loom/internal/manifest"
	"github.com/IMS212/loom/internal/platform"
)

// Options controls a single sync invocation. Offline and refresh modes
// are explicit parameters rather than ambient state so the sync is
// testable in isolation.
type Options struct {
	// TargetDir is the extraction directory. It is owned exclusively by
	// the sync while it runs and may be deleted and recreated wholesale.
	TargetDir string

	// CacheDir is the root under which downloaded jars are stored at
	// their manifest-relative paths.
	CacheDir string

	// AllowNetwork permits downloads. When false, the sync works purely
	// from the cache and fails if a required jar is absent.
	AllowNetwork bool

	// ForceRefresh skips the staleness check and always re-extracts.
	ForceRefresh bool

	// CustomDir, when set, names a user-managed natives directory. The
	// sync only verifies it exists and performs no other work.
	CustomDir string

	// KeyringPath, when set, enables detached-signature verification of
	// each fetched jar against the given GPG keyring. The signature is
	// expected at the jar URL plus ".asc".
	KeyringPath string
}

// Config holds construction parameters for a Syncer.
type Config struct {
	// Platform is the host classification. Required.
	Platform *platform.Info

	// Logger receives sync progress. Optional; defaults to no-op.
	Logger Logger
}

// Syncer orchestrates the fetch, verification, and extraction of
// native-library artifacts for one platform.
type Syncer struct {
	platform *platform.Info
	fetcher  *Fetcher
	tracker  *Tracker
	logger   Logger
}

// NewSyncer creates a syncer for the given platform.
func NewSyncer(config Config) (*Syncer, error) {
	if config.Platform == nil {
		return nil, fmt.Errorf("Platform is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	return &Syncer{
		platform: config.Platform,
		fetcher:  NewFetcher(),
		tracker:  NewTracker(logger),
		logger:   logger,
	}, nil
}

// Sync brings the target directory in line with the manifest's native
// payloads for the running platform.
//
// When nothing is stale and no refresh is forced, it returns without
// any network or filesystem writes. Otherwise the target directory is
// wiped and rebuilt artifact by artifact, in manifest order; the first
// failure aborts the sync and leaves the directory stale so the next
// invocation resumes the remaining work.
func (s *Syncer) Sync(ctx context.Context, meta *manifest.VersionMeta, opts Options) error {
	if opts.CustomDir != "" {
		if _, err := os.Stat(opts.CustomDir); err != nil {
			return fmt.Errorf("custom natives directory not found at %s: %w", opts.CustomDir, err)
		}
		s.logger.Debug("using custom natives directory", "dir", opts.CustomDir)
		return nil
	}

	applicable := manifest.NativesFor(meta, s.platform)
	if len(applicable) == 0 {
		return &UnsupportedPlatformError{OS: s.platform.OS, Arch: s.platform.Arch}
	}

	if !opts.ForceRefresh && !s.requiresExtract(applicable, opts.TargetDir) {
		s.logger.Info("natives do not need extracting, skipping", "dir", opts.TargetDir)
		return nil
	}

	return s.extractNatives(ctx, applicable, opts)
}

// RequiresExtract reports whether a sync would rebuild the target
// directory, without performing any writes or network activity.
func (s *Syncer) RequiresExtract(meta *manifest.VersionMeta, opts Options) (bool, error) {
	if opts.CustomDir != "" {
		return false, nil
	}

	applicable := manifest.NativesFor(meta, s.platform)
	if len(applicable) == 0 {
		return false, &UnsupportedPlatformError{OS: s.platform.OS, Arch: s.platform.Arch}
	}

	if opts.ForceRefresh {
		return true, nil
	}

	return s.requiresExtract(applicable, opts.TargetDir), nil
}

// requiresExtract is true if any applicable artifact's marker is
// missing, unreadable, or records a different hash. A single stale
// artifact triggers a full wipe-and-rebuild.
func (s *Syncer) requiresExtract(applicable []manifest.Artifact, targetDir string) bool {
	for i := range applicable {
		if s.tracker.IsStale(&applicable[i], targetDir) {
			return true
		}
	}
	return false
}

func (s *Syncer) extractNatives(ctx context.Context, applicable []manifest.Artifact, opts Options) error {
	if _, err := os.Stat(opts.TargetDir); err == nil {
		if err := os.RemoveAll(opts.TargetDir); err != nil {
			return &FilesystemError{
				Path: opts.TargetDir,
				Hint: "failed to delete the natives directory, is the game still running?",
				Err:  err,
			}
		}
	}

	if err := os.MkdirAll(opts.TargetDir, 0o755); err != nil {
		return &FilesystemError{Path: opts.TargetDir, Err: err}
	}

	for i := range applicable {
		if err := s.syncArtifact(ctx, &applicable[i], opts); err != nil {
			return err
		}
	}

	return nil
}

// syncArtifact fetches, verifies, unpacks, and marks one artifact. The
// marker is written strictly after a successful unpack so an aborted
// run reads as stale.
func (s *Syncer) syncArtifact(ctx context.Context, artifact *manifest.Artifact, opts Options) error {
	cachePath := filepath.Join(opts.CacheDir, filepath.FromSlash(artifact.Path))

	if err := s.fetcher.EnsureFetched(ctx, artifact.URL, cachePath, artifact.SHA1, opts.AllowNetwork); err != nil {
		return err
	}

	if !fileExists(cachePath) {
		return &MissingArtifactError{Name: artifact.Name, Path: cachePath}
	}

	if opts.KeyringPath != "" {
		if err := s.verifySignature(ctx, artifact, cachePath, opts); err != nil {
			return err
		}
	}

	s.logger.Debug("extracting natives", "artifact", artifact.Name)

	if err := unpackJar(cachePath, opts.TargetDir); err != nil {
		return err
	}

	return s.tracker.MarkExtracted(artifact, opts.TargetDir)
}

func (s *Syncer) verifySignature(ctx context.Context, artifact *manifest.Artifact, cachePath string, opts Options) error {
	sigURL := artifact.URL + ".asc"
	sigPath := cachePath + ".asc"

	if err := s.fetcher.EnsureFetched(ctx, sigURL, sigPath, "", opts.AllowNetwork); err != nil {
		return err
	}

	if !fileExists(sigPath) {
		return &MissingArtifactError{Name: artifact.Name + " signature", Path: sigPath}
	}

	verifier := NewSignatureVerifier(opts.KeyringPath)
	if err := verifier.Verify(cachePath, sigPath); err != nil {
		return fmt.Errorf("signature verification failed for %s: %w", artifact.Name, err)
	}

	return nil
}
