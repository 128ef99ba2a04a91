package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"vidscribe/internal/services"
)

// Requirement defines an external binary vidscribe shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the binary to report its version.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := Resolve(cmd)
		if err != nil {
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// ProbeVersions fills Version for available requirements that declare
// VersionArgs. Probe failures are recorded in Detail and do not flip
// Available.
func ProbeVersions(ctx context.Context, run services.CommandRunner, requirements []Requirement, statuses []Status) {
	if run == nil {
		run = services.RunCommand
	}
	for i := range statuses {
		if i >= len(requirements) || !statuses[i].Available || len(requirements[i].VersionArgs) == 0 {
			continue
		}
		output, err := run(ctx, statuses[i].Path, requirements[i].VersionArgs...)
		if err != nil {
			statuses[i].Detail = fmt.Sprintf("version probe failed: %v", err)
			continue
		}
		statuses[i].Version = firstLine(string(output))
	}
}

// Resolve returns the absolute path of command. Commands containing a path
// separator are checked in place; bare names are looked up on PATH.
func Resolve(command string) (string, error) {
	command = strings.TrimSpace(command)
	if strings.ContainsRune(command, os.PathSeparator) {
		info, err := os.Stat(command)
		if err != nil || !isExecutable(info) {
			return "", fmt.Errorf("binary %q not executable", command)
		}
		return command, nil
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	return path, nil
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func firstLine(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(line)
}
