package platform

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// RealDetector implements Detector using gopsutil.
type RealDetector struct{}

// NewDetector creates a new host detector.
func NewDetector() Detector {
	return &RealDetector{}
}

// Detect gathers host facts. OS and architecture always come from the Go
// runtime; if gopsutil cannot read the host details the remaining fields
// are left empty and detection still succeeds. A cancelled context is an
// error.
func (d *RealDetector) Detect(ctx context.Context) (*Info, error) {
	info := &Info{
		OS:   runtime.GOOS,
		Arch: normalizeArch(runtime.GOARCH),
	}

	hi, err := host.InfoWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("host detection cancelled: %w", ctx.Err())
		}
		info.Hostname, _ = os.Hostname()
		return info, nil
	}

	info.Hostname = hi.Hostname
	info.Kernel = hi.KernelVersion

	platform := normalizePlatform(hi.Platform)
	if platform != "" {
		info.Platform = platform
		info.Family = mapFamily(hi.PlatformFamily)
		info.Version = normalizePlatform(hi.PlatformVersion)
	}

	return info, nil
}
