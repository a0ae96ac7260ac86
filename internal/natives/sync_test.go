package natives

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/IMS212/loom/internal/manifest"
	"github.com/IMS212/loom/internal/platform"
)

var linuxHost = &platform.Info{OS: platform.OSLinux, Arch: platform.Arch64}

// syncFixture wires a syncer against an httptest server that serves
// jars by URL path and counts requests.
type syncFixture struct {
	t        *testing.T
	server   *httptest.Server
	requests atomic.Int64
	payloads map[string][]byte // URL path -> response body
	syncer   *Syncer
	opts     Options
}

func newSyncFixture(t *testing.T, host *platform.Info) *syncFixture {
	t.Helper()

	f := &syncFixture{t: t, payloads: map[string][]byte{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		body, ok := f.payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(f.server.Close)

	syncer, err := NewSyncer(Config{Platform: host})
	if err != nil {
		t.Fatalf("NewSyncer() error = %v", err)
	}
	f.syncer = syncer

	root := t.TempDir()
	f.opts = Options{
		TargetDir:    filepath.Join(root, "natives"),
		CacheDir:     filepath.Join(root, "cache"),
		AllowNetwork: true,
	}

	return f
}

// addNativeJar registers a jar with the server and returns a manifest
// library whose linux natives point at it.
func (f *syncFixture) addNativeJar(libName, fileBase string, entries map[string]string) manifest.Library {
	f.t.Helper()

	jar := makeJar(f.t, entries)
	urlPath := "/" + fileBase + ".jar"
	f.payloads[urlPath] = jar

	return manifest.Library{
		Name:    libName,
		Natives: map[string]string{platform.OSLinux: "natives-linux"},
		Downloads: manifest.Downloads{
			Classifiers: map[string]*manifest.Artifact{
				"natives-linux": {
					Path: "natives/" + fileBase + ".jar",
					SHA1: sha1Hex(jar),
					Size: int64(len(jar)),
					URL:  f.server.URL + urlPath,
				},
			},
		},
	}
}

func (f *syncFixture) sync(meta *manifest.VersionMeta) error {
	return f.syncer.Sync(context.Background(), meta, f.opts)
}

func TestSync_FullScenario(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-3.2.2-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{ID: "1.17.1", Libraries: []manifest.Library{lib}}

	if err := f.sync(meta); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	artifact := lib.Downloads.Classifiers["natives-linux"]

	// Cache holds the jar at its manifest-relative path with the right hash
	cachePath := filepath.Join(f.opts.CacheDir, "natives", "lwjgl-3.2.2-natives-linux.jar")
	if !hashMatches(cachePath, artifact.SHA1) {
		t.Error("cache file missing or hash mismatch")
	}

	// Target holds the unpacked contents
	lib1, err := os.ReadFile(filepath.Join(f.opts.TargetDir, "liblwjgl.so"))
	if err != nil {
		t.Fatalf("read extracted library: %v", err)
	}
	if string(lib1) != "ELF bytes" {
		t.Errorf("extracted content = %q", lib1)
	}

	// Marker records the artifact hash
	marker, err := os.ReadFile(filepath.Join(f.opts.TargetDir, "lwjgl-3.2.2-natives-linux.jar.sha1"))
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if !strings.EqualFold(string(marker), artifact.SHA1) {
		t.Errorf("marker = %q, want %q", marker, artifact.SHA1)
	}

	if n := f.requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestSync_Idempotent(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	if err := f.sync(meta); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	after := f.requests.Load()

	// A sentinel in the target directory proves the second sync does not wipe
	sentinel := filepath.Join(f.opts.TargetDir, "sentinel")
	if err := os.WriteFile(sentinel, []byte("untouched"), 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}

	if err := f.sync(meta); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}

	if n := f.requests.Load(); n != after {
		t.Errorf("second sync performed %d network requests, want 0", n-after)
	}
	if _, err := os.Stat(sentinel); err != nil {
		t.Error("second sync rebuilt the target directory, want fast no-op")
	}
}

func TestSync_StaleMarkerTriggersRebuild(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lwjgl := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	openal := f.addNativeJar("org.lwjgl:openal:3.2.2", "openal-natives-linux", map[string]string{
		"libopenal.so": "AL bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lwjgl, openal}}

	if err := f.sync(meta); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	downloads := f.requests.Load()

	// Corrupt one marker and leave a sentinel to observe the wipe
	marker := filepath.Join(f.opts.TargetDir, "lwjgl-natives-linux.jar.sha1")
	if err := os.WriteFile(marker, []byte(strings.Repeat("0", 40)), 0o644); err != nil {
		t.Fatalf("corrupt marker: %v", err)
	}
	sentinel := filepath.Join(f.opts.TargetDir, "sentinel")
	if err := os.WriteFile(sentinel, []byte("doomed"), 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}

	if err := f.sync(meta); err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}

	// One stale marker wipes and rebuilds the whole directory
	if _, err := os.Stat(sentinel); !os.IsNotExist(err) {
		t.Error("stale marker should trigger a full directory wipe")
	}

	// But the cache is still valid, so nothing is re-downloaded
	if n := f.requests.Load(); n != downloads {
		t.Errorf("rebuild performed %d extra requests, want 0 (cache is valid)", n-downloads)
	}

	// Markers are consistent again
	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("read marker after rebuild: %v", err)
	}
	want := lwjgl.Downloads.Classifiers["natives-linux"].SHA1
	if !strings.EqualFold(string(data), want) {
		t.Errorf("marker = %q, want %q", data, want)
	}
}

func TestSync_ForceRefresh(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	if err := f.sync(meta); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	downloads := f.requests.Load()

	sentinel := filepath.Join(f.opts.TargetDir, "sentinel")
	if err := os.WriteFile(sentinel, []byte("doomed"), 0o644); err != nil {
		t.Fatalf("write sentinel: %v", err)
	}

	f.opts.ForceRefresh = true
	if err := f.sync(meta); err != nil {
		t.Fatalf("forced Sync() error = %v", err)
	}

	if _, err := os.Stat(sentinel); !os.IsNotExist(err) {
		t.Error("forced refresh should wipe the target directory")
	}
	// Cache entries still match, so no re-download even when forced
	if n := f.requests.Load(); n != downloads {
		t.Errorf("forced refresh performed %d extra requests, want 0", n-downloads)
	}
}

func TestSync_OfflineMissing(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	f.opts.AllowNetwork = false
	err := f.sync(meta)

	var missingErr *MissingArtifactError
	if !errors.As(err, &missingErr) {
		t.Fatalf("Sync() error = %v, want MissingArtifactError", err)
	}
	if missingErr.Name != "org.lwjgl:lwjgl:3.2.2:natives-linux" {
		t.Errorf("MissingArtifactError.Name = %v", missingErr.Name)
	}
	if n := f.requests.Load(); n != 0 {
		t.Errorf("offline sync performed %d requests, want 0", n)
	}
}

func TestSync_OfflineWithWarmCache(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	// Pre-populate the cache at the correct path with the correct bytes
	jar := f.payloads["/lwjgl-natives-linux.jar"]
	cachePath := filepath.Join(f.opts.CacheDir, "natives", "lwjgl-natives-linux.jar")
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err != nil {
		t.Fatalf("create cache dir: %v", err)
	}
	if err := os.WriteFile(cachePath, jar, 0o644); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	f.opts.AllowNetwork = false
	if err := f.sync(meta); err != nil {
		t.Fatalf("offline Sync() with warm cache error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(f.opts.TargetDir, "liblwjgl.so")); err != nil {
		t.Error("offline sync with warm cache should extract natives")
	}
	if n := f.requests.Load(); n != 0 {
		t.Errorf("offline sync performed %d requests, want 0", n)
	}
}

func TestSync_CorruptDownload(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	// Server now returns different bytes than the manifest declares
	f.payloads["/lwjgl-natives-linux.jar"] = []byte("tampered")
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	err := f.sync(meta)

	var integrityErr *IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("Sync() error = %v, want IntegrityError", err)
	}

	// No corrupted file left in the cache
	cachePath := filepath.Join(f.opts.CacheDir, "natives", "lwjgl-natives-linux.jar")
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		t.Error("corrupted download left a file in the cache")
	}
}

func TestSync_UnsupportedPlatform(t *testing.T) {
	windowsHost := &platform.Info{OS: platform.OSWindows, Arch: platform.Arch64}
	f := newSyncFixture(t, windowsHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	err := f.sync(meta)

	var platformErr *UnsupportedPlatformError
	if !errors.As(err, &platformErr) {
		t.Fatalf("Sync() error = %v, want UnsupportedPlatformError", err)
	}
	if platformErr.OS != platform.OSWindows {
		t.Errorf("UnsupportedPlatformError.OS = %v", platformErr.OS)
	}
}

func TestSync_ManifestOrder(t *testing.T) {
	f := newSyncFixture(t, linuxHost)

	// Both jars carry a same-named entry; manifest order decides the winner
	first := f.addNativeJar("a:first:1", "first-natives-linux", map[string]string{
		"shared.txt": "from first",
	})
	second := f.addNativeJar("a:second:1", "second-natives-linux", map[string]string{
		"shared.txt": "from second",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{first, second}}

	if err := f.sync(meta); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(f.opts.TargetDir, "shared.txt"))
	if err != nil {
		t.Fatalf("read shared entry: %v", err)
	}
	if string(got) != "from second" {
		t.Errorf("shared entry = %q, want last artifact in manifest order to win", got)
	}
}

func TestSync_CustomDir(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	t.Run("existing custom dir", func(t *testing.T) {
		f.opts.CustomDir = t.TempDir()
		if err := f.sync(meta); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if n := f.requests.Load(); n != 0 {
			t.Errorf("custom dir sync performed %d requests, want 0", n)
		}
		if _, err := os.Stat(f.opts.TargetDir); !os.IsNotExist(err) {
			t.Error("custom dir sync should not create the target directory")
		}
	})

	t.Run("missing custom dir", func(t *testing.T) {
		f.opts.CustomDir = filepath.Join(t.TempDir(), "missing")
		if err := f.sync(meta); err == nil {
			t.Error("Sync() with missing custom dir expected error")
		}
	})
}

func TestSync_AbortLeavesStaleState(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	good := f.addNativeJar("a:good:1", "good-natives-linux", map[string]string{
		"libgood.so": "fine",
	})
	bad := f.addNativeJar("a:bad:1", "bad-natives-linux", map[string]string{
		"libbad.so": "fine too",
	})
	// Second artifact's payload disappears from the server
	delete(f.payloads, "/bad-natives-linux.jar")
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{good, bad}}

	if err := f.sync(meta); err == nil {
		t.Fatal("Sync() expected error for missing second artifact")
	}

	// The first artifact was processed and marked; the second was not
	goodMarker := filepath.Join(f.opts.TargetDir, "good-natives-linux.jar.sha1")
	if _, err := os.Stat(goodMarker); err != nil {
		t.Error("first artifact should be marked before the failure")
	}
	badMarker := filepath.Join(f.opts.TargetDir, "bad-natives-linux.jar.sha1")
	if _, err := os.Stat(badMarker); !os.IsNotExist(err) {
		t.Error("failed artifact must not be marked")
	}

	// Retry after the payload returns: resumes and succeeds, reusing the
	// cached first artifact
	f.payloads["/bad-natives-linux.jar"] = makeJar(t, map[string]string{"libbad.so": "fine too"})
	downloadsBefore := f.requests.Load()
	if err := f.sync(meta); err != nil {
		t.Fatalf("retry Sync() error = %v", err)
	}
	if n := f.requests.Load() - downloadsBefore; n != 1 {
		t.Errorf("retry performed %d requests, want 1 (only the failed artifact)", n)
	}
}

func TestSyncer_RequiresExtract(t *testing.T) {
	f := newSyncFixture(t, linuxHost)
	lib := f.addNativeJar("org.lwjgl:lwjgl:3.2.2", "lwjgl-natives-linux", map[string]string{
		"liblwjgl.so": "ELF bytes",
	})
	meta := &manifest.VersionMeta{Libraries: []manifest.Library{lib}}

	stale, err := f.syncer.RequiresExtract(meta, f.opts)
	if err != nil {
		t.Fatalf("RequiresExtract() error = %v", err)
	}
	if !stale {
		t.Error("RequiresExtract() = false before any sync, want true")
	}

	if err := f.sync(meta); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	stale, err = f.syncer.RequiresExtract(meta, f.opts)
	if err != nil {
		t.Fatalf("RequiresExtract() error = %v", err)
	}
	if stale {
		t.Error("RequiresExtract() = true after sync, want false")
	}
}

func TestNewSyncer_RequiresPlatform(t *testing.T) {
	if _, err := NewSyncer(Config{}); err == nil {
		t.Error("NewSyncer() without platform expected error")
	}
}
