package job

// State is a step of the per-job state machine.
type State int

const (
	Preparing State = iota
	Transcoding
	Muxing
	MetadataFetch
	Finalizing
	Completed
	Failed
	Cancelled
)

var stateNames = [...]string{
	Preparing:     "preparing",
	Transcoding:   "transcoding",
	Muxing:        "muxing",
	MetadataFetch: "metadata_fetch",
	Finalizing:    "finalizing",
	Completed:     "completed",
	Failed:        "failed",
	Cancelled:     "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends the job.
func (s State) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}
