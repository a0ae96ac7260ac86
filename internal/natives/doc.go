// Package natives keeps a directory of extracted platform-native
// libraries in sync with a version manifest.
//
// Staleness is decided purely by content hash: each extracted jar leaves
// a small .sha1 marker in the target directory recording the hash of the
// artifact whose contents were unpacked. A repeated sync with unchanged
// inputs reduces to reading those markers and performs no network or
// filesystem writes. The moment any marker is missing or disagrees with
// the manifest, the whole directory is wiped and rebuilt from verified
// cache entries, downloading only what the cache does not already hold
// at the expected hash.
//
// A sync runs to completion or fails on the first error; it never
// retries internally. A failed sync leaves the target directory stale,
// so simply re-invoking it resumes with minimal redundant work.
// Concurrent syncs against one target directory must be serialized by
// the caller (see internal/transaction).
package natives
