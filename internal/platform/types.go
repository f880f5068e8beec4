// Package platform describes the host pgp-cp runs on.
//
// The facts are logged with every run for auditing and are exposed to Lua
// configuration files as a read-only global table named "platform".
package platform

import (
	"context"

	"github.com/rs/zerolog"
)

// Linux distribution family constants.
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

// Info contains host facts.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64", or GOARCH when not recognised
	Hostname string
	Platform string // distro ID (e.g. "ubuntu"), empty when unknown
	Family   string // canonical family (e.g. "debian")
	Version  string // distro version (e.g. "22.04")
	Kernel   string // kernel version
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (i *Info) MarshalZerologObject(e *zerolog.Event) {
	e.Str("os", i.OS).
		Str("arch", i.Arch).
		Str("hostname", i.Hostname)
	if i.Platform != "" {
		e.Str("distro", i.Platform).
			Str("family", i.Family).
			Str("version", i.Version)
	}
	if i.Kernel != "" {
		e.Str("kernel", i.Kernel)
	}
}

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It is used by tests and when
// detection is not wanted.
type StaticDetector struct {
	Info Info
}

// Detect returns a copy of the fixed info.
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := s.Info
	return &info, nil
}
