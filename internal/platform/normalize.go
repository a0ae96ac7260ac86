package platform

import (
	"fmt"
	"strings"
)

// familyMap maps distribution names to their canonical family names.
// This is used to normalize variations of family strings from gopsutil.
var familyMap = map[string]string{
	"debian":   FamilyDebian,
	"ubuntu":   FamilyDebian, // gopsutil might return ubuntu as family
	"rhel":     FamilyRHEL,
	"centos":   FamilyRHEL,
	"rocky":    FamilyRHEL,
	"fedora":   FamilyFedora,
	"suse":     FamilySUSE,
	"opensuse": FamilySUSE,
	"arch":     FamilyArch,
	"manjaro":  FamilyArch,
	"alpine":   FamilyAlpine,
	"gentoo":   FamilyGentoo,
}

// classifyOS maps a GOOS value to the OS name used by natives classifiers.
// Manifests only distinguish windows, osx, and linux; every other Unix-like
// GOOS is treated as linux, matching the launcher's own behavior.
func classifyOS(goos string) string {
	switch goos {
	case "windows":
		return OSWindows
	case "darwin":
		return OSMacOS
	default:
		return OSLinux
	}
}

// classifyArch maps a GOARCH value to the pointer width used by natives
// classifiers. Unknown architectures are an error rather than a guess:
// extracting natives for the wrong width produces link failures at runtime
// that are much harder to diagnose.
func classifyArch(goarch string) (string, error) {
	switch goarch {
	case "amd64", "arm64", "ppc64", "ppc64le", "riscv64", "s390x", "mips64", "mips64le", "loong64":
		return Arch64, nil
	case "386", "arm", "mips", "mipsle":
		return Arch32, nil
	default:
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}
}

// normalizePlatform converts platform IDs to lowercase for consistency.
func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// mapFamily maps distribution family strings to canonical family names.
// Uses a package-level lookup table for explicit mapping.
func mapFamily(family string) string {
	normalized := strings.ToLower(strings.TrimSpace(family))
	if canonical, ok := familyMap[normalized]; ok {
		return canonical
	}

	// Return "unknown" for unrecognized families
	return FamilyUnknown
}
