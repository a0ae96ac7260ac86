package natives

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

// fileSHA1 calculates the SHA-1 checksum of a file as a lowercase hex string.
// Version manifests declare SHA-1 hashes, so that is what markers and cache
// checks compare against.
func fileSHA1(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha1.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// hashMatches reports whether the file at path exists and hashes to
// expected. Hex comparison is case-insensitive. Any read error counts
// as a mismatch, never a failure.
func hashMatches(path, expected string) bool {
	actual, err := fileSHA1(path)
	if err != nil {
		return false
	}
	return strings.EqualFold(actual, expected)
}

// SignatureVerifier checks detached GPG signatures against a keyring.
type SignatureVerifier struct {
	keyringPath string
}

// NewSignatureVerifier creates a verifier reading keys from the given
// keyring file (armored or binary).
func NewSignatureVerifier(keyringPath string) *SignatureVerifier {
	return &SignatureVerifier{keyringPath: keyringPath}
}

// Verify checks that signaturePath is a valid detached signature over
// the file at artifactPath, made by a key in the keyring.
func (v *SignatureVerifier) Verify(artifactPath, signaturePath string) error {
	keyring, err := v.loadKeyring()
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	artifactFile, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer artifactFile.Close()

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	// Try armored first, then fall back to a binary signature
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, artifactFile, sigFile, nil)
	if err != nil {
		artifactFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, artifactFile, sigFile, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}

	return nil
}

// loadKeyring reads the keyring file, accepting armored and binary forms.
func (v *SignatureVerifier) loadKeyring() (openpgp.EntityList, error) {
	keyringFile, err := os.Open(v.keyringPath)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}
