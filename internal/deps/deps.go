package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"aaxconv/internal/encoding"
)

// Requirement defines an external binary a conversion relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Requirements lists the binaries needed to produce container. mkvmerge is
// only required for webm output.
func Requirements(tools encoding.Tools, container encoding.Container) []Requirement {
	mkvmerge := Requirement{
		Name:        "mkvmerge",
		Command:     tools.Mkvmerge,
		Description: "Required for webm remux",
		Optional:    true,
	}
	if container.Policy().Chapters == encoding.ChapterMatroska {
		mkvmerge.Optional = false
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     tools.FFmpeg,
			Description: "Required for decryption, decoding and mp4 remux",
		},
		{
			Name:        "opusenc",
			Command:     tools.Opusenc,
			Description: "Required for encoding",
		},
		mkvmerge,
	}
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
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = resolved
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
