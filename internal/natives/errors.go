package natives

import "fmt"

// UnsupportedPlatformError is returned when a manifest that is expected
// to carry natives has no entry applicable to the running platform.
// This signals an unsupported platform or a corrupt manifest, never a
// valid empty result.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no natives found for the current platform (%s, %s-bit)", e.OS, e.Arch)
}

// TransferError is returned when a network fetch fails: connection
// error, timeout, or non-success status. No partial file is left at the
// destination path.
type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IntegrityError is returned when downloaded content hashes to a value
// different from the manifest's declared hash. The temporary file is
// discarded and any previous good cache entry is preserved.
type IntegrityError struct {
	URL      string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("hash mismatch for %s:\nexpected: %s\nactual:   %s", e.URL, e.Expected, e.Actual)
}

// FilesystemError is returned when a local filesystem operation fails
// for reasons other than a missing file, e.g. permissions or an in-use
// directory.
type FilesystemError struct {
	Path string
	Hint string
	Err  error
}

func (e *FilesystemError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Path, e.Err, e.Hint)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// MissingArtifactError is returned when no cached copy of an artifact
// exists and the network was not allowed to provide one.
type MissingArtifactError struct {
	Name string
	Path string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("native jar %s not found at %s", e.Name, e.Path)
}
