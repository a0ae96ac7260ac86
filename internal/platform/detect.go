package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using actual host inspection.
type RealDetector struct{}

// NewDetector creates a new platform detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect classifies the running host and returns platform information.
// OS and pointer width come from runtime.GOOS and runtime.GOARCH; Linux
// distribution details come from gopsutil.
//
// On Linux, if gopsutil fails to detect the distribution, distro fields
// are left empty and detection continues (graceful fallback). Basic
// OS/arch classification works even when distro detection fails.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:      classifyOS(runtime.GOOS),
		OSRaw:   runtime.GOOS,
		ArchRaw: runtime.GOARCH,
	}

	arch, err := classifyArch(runtime.GOARCH)
	if err != nil {
		return nil, fmt.Errorf("platform detection failed: %w", err)
	}
	info.Arch = arch

	// Detect Linux distribution details using gopsutil (Linux only)
	if runtime.GOOS == "linux" {
		platform, family, version, err := host.PlatformInformationWithContext(ctx)
		if err != nil {
			// Check if context was cancelled - this is a hard failure
			if ctx.Err() != nil {
				return nil, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
			}
			// Graceful fallback for detection failures only.
			// OS/arch is all the natives classifier needs anyway.
			return info, nil
		}

		platform = normalizePlatform(platform)
		family = mapFamily(family)
		version = normalizePlatform(version)

		// Only set fields if we got valid data
		if platform != "" {
			info.Platform = platform
			info.Family = family
			info.Version = version
		}
	}

	return info, nil
}

// IsCI reports whether the process appears to run on a CI service.
// The LOOM_CI variable takes precedence over the conventional CI variable
// so tests and local builds can force either answer.
func IsCI() bool {
	if v := os.Getenv("LOOM_CI"); v != "" {
		return strings.EqualFold(v, "true")
	}

	// CI is set by most popular CI services
	return os.Getenv("CI") != ""
}
