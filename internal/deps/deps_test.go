package deps

import (
	"os/exec"
	"testing"
)

func TestCheck_NotInstalled(t *testing.T) {
	status := Check("hyprcaptions-no-such-tool", "--version")
	if status.Installed {
		t.Error("expected Installed=false for a missing tool")
	}
	if status.Path != "" {
		t.Error("expected empty path when not installed")
	}
}

func TestCheck_Installed(t *testing.T) {
	// sh is present on every system the tests run on
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
	status := Check("sh", "")
	if !status.Installed {
		t.Error("sh in PATH but Installed=false")
	}
	if status.Path == "" {
		t.Error("sh installed but path empty")
	}
	if status.Version != "" {
		t.Errorf("no version arg should leave Version empty, got %q", status.Version)
	}
}

func TestCheck_Version(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not installed")
	}
	status := Check("echo", "v1.2.3")
	if status.Version != "v1.2.3" {
		t.Errorf("Version = %q, want first output line", status.Version)
	}
}

func TestMissing(t *testing.T) {
	reports := CheckAll([]Tool{
		{Name: "hyprcaptions-no-such-tool", Required: true},
		{Name: "hyprcaptions-optional-tool"},
	})
	missing := Missing(reports)
	if len(missing) != 1 || missing[0] != "hyprcaptions-no-such-tool" {
		t.Errorf("Missing() = %v", missing)
	}
}
