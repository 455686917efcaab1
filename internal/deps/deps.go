package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement is an external program cgex launches.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a Requirement resolved on PATH.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// CheckBinaries resolves each requirement on PATH in order. Requirements
// sharing a command are reported once, under the first name.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	seen := make(map[string]struct{}, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		if req.Command != "" {
			if _, dup := seen[req.Command]; dup {
				continue
			}
			seen[req.Command] = struct{}{}
		}
		results = append(results, resolve(req))
	}
	return results
}

func resolve(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

// Missing returns the unavailable required dependencies.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

// MissingError returns nil when every required dependency is available and
// otherwise an error naming each missing one.
func MissingError(statuses []Status) error {
	missing := Missing(statuses)
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, 0, len(missing))
	for _, m := range missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", m.Name, m.Detail))
	}
	return fmt.Errorf("missing required programs: %s", strings.Join(parts, ", "))
}
