package types

// Artifact is a quantized GGUF file produced (or found) in the output directory.
type Artifact struct {
	// Quantization level identifier.
	// example: Q4_K_M
	Level string `json:"level" example:"Q4_K_M"`
	// Base filename inside the output directory.
	// example: Llama-3.2-1B-Instruct-Q4_K_M.gguf
	Filename string `json:"filename" example:"Llama-3.2-1B-Instruct-Q4_K_M.gguf"`
	// Absolute path to the file on disk.
	Path string `json:"path"`
	// Size in bytes.
	Size int64 `json:"size"`
	// Hex SHA-256 of the file contents; empty until checksummed.
	SHA256 string `json:"sha256,omitempty"`
	// Header metadata, when the file could be parsed.
	Header *Header `json:"header,omitempty"`
}

// Header holds the subset of GGUF header metadata surfaced in model cards.
type Header struct {
	Architecture  string  `json:"architecture,omitempty" example:"llama"`
	FileType      string  `json:"file_type,omitempty" example:"Q4_K_M"`
	Parameters    uint64  `json:"parameters,omitempty" example:"1235814400"`
	BitsPerWeight float64 `json:"bits_per_weight,omitempty" example:"4.89"`
}

// ChecksumEntry is one line of a checksum manifest.
type ChecksumEntry struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
}
