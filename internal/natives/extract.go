package natives

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// unpackJar extracts every entry of a jar (zip) archive into destDir,
// preserving file modes.
func unpackJar(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return &FilesystemError{Path: archivePath, Err: fmt.Errorf("open jar: %w", err)}
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if err := unpackEntry(entry, destDir); err != nil {
			return err
		}
	}

	return nil
}

func unpackEntry(entry *zip.File, destDir string) error {
	target := filepath.Join(destDir, filepath.FromSlash(entry.Name))

	// Security check: prevent path traversal
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return &FilesystemError{Path: target, Err: fmt.Errorf("illegal file path: %s", entry.Name)}
	}

	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return &FilesystemError{Path: target, Err: fmt.Errorf("create directory: %w", err)}
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return &FilesystemError{Path: target, Err: fmt.Errorf("create parent dir: %w", err)}
	}

	src, err := entry.Open()
	if err != nil {
		return &FilesystemError{Path: target, Err: fmt.Errorf("open jar entry %s: %w", entry.Name, err)}
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return &FilesystemError{Path: target, Err: fmt.Errorf("create file: %w", err)}
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return &FilesystemError{Path: target, Err: fmt.Errorf("write file: %w", err)}
	}

	if err := out.Close(); err != nil {
		return &FilesystemError{Path: target, Err: err}
	}

	return nil
}
