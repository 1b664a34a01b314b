package types

// RunStatus is the live view of a run served on /status.
type RunStatus struct {
	// Stage currently running, or the last one that finished.
	Stage string `json:"stage" example:"quantize"`
	// State is running, done or failed.
	State   string        `json:"state" example:"running"`
	Error   string        `json:"error,omitempty"`
	Elapsed string        `json:"elapsed" example:"1m12s"`
	Levels  []LevelStatus `json:"levels"`
}

// LevelStatus is the progress of one quantization level.
type LevelStatus struct {
	Level string `json:"level" example:"Q4_K_M"`
	// State is pending, running, done, skipped or failed.
	State string `json:"state" example:"done"`
	Bytes int64  `json:"bytes,omitempty"`
}
