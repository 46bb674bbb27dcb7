package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary a pipeline stage shells out to.
// Command may be a bare name resolved on PATH or an absolute override
// from config.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the probe result for one requirement. Available statuses
// carry the resolved binary location in Detail; unavailable ones carry
// the reason.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// CheckBinaries probes each requirement with exec.LookPath.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(req.Command)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Detail = resolved
		results = append(results, status)
	}
	return results
}
