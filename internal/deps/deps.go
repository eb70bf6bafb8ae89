package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of a dependency
type Status struct {
	Installed bool
	Path      string
	Version   string
}

// Tool is an external program hyprcaptions runs.
type Tool struct {
	Name       string
	VersionArg string
	Purpose    string
	Required   bool
}

// Tools lists every external program in the order they are needed.
var Tools = []Tool{
	{Name: "pw-record", VersionArg: "--version", Purpose: "microphone capture", Required: true},
	{Name: "pw-cli", VersionArg: "--version", Purpose: "PipeWire availability check", Required: true},
	{Name: "ffplay", VersionArg: "-version", Purpose: "voice playback"},
	{Name: "notify-send", VersionArg: "--version", Purpose: "desktop notifications"},
}

// Check looks name up in PATH and reads the first line of its version output.
func Check(name, versionArg string) Status {
	path, err := exec.LookPath(name)
	if err != nil {
		return Status{Installed: false}
	}

	status := Status{
		Installed: true,
		Path:      path,
	}

	if versionArg == "" {
		return status
	}
	output, err := exec.Command(path, versionArg).Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}

// Report pairs each tool with its status.
type Report struct {
	Tool   Tool
	Status Status
}

// CheckAll checks every entry of tools.
func CheckAll(tools []Tool) []Report {
	out := make([]Report, 0, len(tools))
	for _, t := range tools {
		out = append(out, Report{Tool: t, Status: Check(t.Name, t.VersionArg)})
	}
	return out
}

// Missing returns the required tools that are not installed.
func Missing(reports []Report) []string {
	var names []string
	for _, r := range reports {
		if r.Tool.Required && !r.Status.Installed {
			names = append(names, r.Tool.Name)
		}
	}
	return names
}
