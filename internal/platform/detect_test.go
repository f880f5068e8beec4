package platform

import (
	"context"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRealDetector_Detect(t *testing.T) {
	info, err := NewDetector().Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.OS != runtime.GOOS {
		t.Errorf("OS = %v, want %v", info.OS, runtime.GOOS)
	}
	if info.Arch != normalizeArch(runtime.GOARCH) {
		t.Errorf("Arch = %v, want %v", info.Arch, normalizeArch(runtime.GOARCH))
	}
	if info.Platform != "" && info.Family == "" {
		t.Error("Family must be set when Platform is set")
	}
}

func TestRealDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// gopsutil may answer from cache; only a returned error is checked
	info, err := NewDetector().Detect(ctx)
	if err == nil && info == nil {
		t.Fatal("Detect() returned neither info nor error")
	}
}

func TestStaticDetector(t *testing.T) {
	want := Info{OS: "linux", Arch: "amd64", Hostname: "ci", Platform: "alpine", Family: FamilyAlpine}
	d := StaticDetector{Info: want}

	got, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("Detect() mismatch (-want +got):\n%s", diff)
	}

	got.Hostname = "changed"
	again, _ := d.Detect(context.Background())
	if again.Hostname != "ci" {
		t.Error("StaticDetector returned shared state")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Detect(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
