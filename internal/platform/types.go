// Package platform classifies the running host for native-library
// resolution and exposes the result to Lua configurations.
//
// Version manifests tag native payloads by OS name (windows, osx, linux)
// and pointer width (32, 64), so classification maps Go's GOOS/GOARCH
// into that vocabulary. On Linux, gopsutil supplies distribution details
// used by config conditionals; distro detection failures fall back
// gracefully to OS/arch-only information.
package platform

import "context"

// Native-payload OS names as they appear in version manifests.
const (
	OSWindows = "windows"
	OSMacOS   = "osx"
	OSLinux   = "linux"
)

// Pointer widths as they appear in natives classifier keys.
const (
	Arch32 = "32"
	Arch64 = "64"
)

// Linux distribution family constants.
// These represent canonical family names for grouping related distributions.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains host classification information.
type Info struct {
	OS       string // manifest OS name: "windows", "osx", "linux"
	OSRaw    string // original GOOS (e.g., "darwin", "freebsd")
	Arch     string // pointer width: "32" or "64"
	ArchRaw  string // original GOARCH (e.g., "amd64", "arm")
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
// This is nil on non-Linux platforms.
type Distro struct {
	ID      string // distro ID (e.g., "ubuntu")
	Family  string // canonical family (e.g., "debian")
	Version string // version (e.g., "22.04")
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != OSLinux || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == OSLinux
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == OSMacOS
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == OSWindows
}

// Is64Bit returns true if the host has a 64-bit pointer width.
func (i *Info) Is64Bit() bool {
	return i.Arch == Arch64
}

// IsDebianFamily returns true if the Linux distribution is Debian-based.
func (i *Info) IsDebianFamily() bool {
	return i.OS == OSLinux && i.Family == FamilyDebian
}

// IsRHELFamily returns true if the Linux distribution is RHEL-based.
func (i *Info) IsRHELFamily() bool {
	return i.OS == OSLinux && i.Family == FamilyRHEL
}

// IsArchFamily returns true if the Linux distribution is Arch-based.
func (i *Info) IsArchFamily() bool {
	return i.OS == OSLinux && i.Family == FamilyArch
}

// IsAlpine returns true if the Linux distribution is Alpine.
func (i *Info) IsAlpine() bool {
	return i.OS == OSLinux && i.Family == FamilyAlpine
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}
