package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"ggufpub/internal/config"
	"ggufpub/internal/hub"
)

// ErrorKind classifies fatal pipeline errors.
type ErrorKind string

const (
	KindUnknown          ErrorKind = "Unknown"
	KindConfigInvalid    ErrorKind = "ConfigInvalid"
	KindInputNotFound    ErrorKind = "InputNotFound"
	KindQuantizeFailed   ErrorKind = "QuantizeFailed"
	KindInvalidArtifact  ErrorKind = "InvalidArtifact"
	KindRepoEnsureFailed ErrorKind = "RepoEnsureFailed"
	KindUploadFailed     ErrorKind = "UploadFailed"
)

// InputNotFoundError reports that the source weights were in none of the
// searched locations.
type InputNotFoundError struct {
	Filename string
	Searched []string
}

func (e InputNotFoundError) Error() string {
	return fmt.Sprintf("input not found: %s (searched %s)", e.Filename, strings.Join(e.Searched, ", "))
}

// IsInputNotFound reports whether err indicates a missing source file.
func IsInputNotFound(err error) bool {
	var e InputNotFoundError
	return errors.As(err, &e)
}

// QuantizeFailedError wraps a failed quantizer invocation.
type QuantizeFailedError struct {
	Level    string
	ExitCode int
	Err      error
}

func (e QuantizeFailedError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("quantize %s failed (exit %d): %v", e.Level, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("quantize %s failed: %v", e.Level, e.Err)
}

func (e QuantizeFailedError) Unwrap() error { return e.Err }

// IsQuantizeFailed reports whether err came from a failed quantizer run.
func IsQuantizeFailed(err error) bool {
	var e QuantizeFailedError
	return errors.As(err, &e)
}

// InvalidArtifactError reports an output that is empty or lacks the GGUF magic.
type InvalidArtifactError struct {
	Level  string
	Path   string
	Reason string
}

func (e InvalidArtifactError) Error() string {
	return fmt.Sprintf("invalid artifact %s (%s): %s", e.Path, e.Level, e.Reason)
}

// IsInvalidArtifact reports whether err indicates a bad output file.
func IsInvalidArtifact(err error) bool {
	var e InvalidArtifactError
	return errors.As(err, &e)
}

// Kind classifies err into the fatal error taxonomy.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case config.IsValidationError(err):
		return KindConfigInvalid
	case IsInputNotFound(err):
		return KindInputNotFound
	case IsQuantizeFailed(err):
		return KindQuantizeFailed
	case IsInvalidArtifact(err):
		return KindInvalidArtifact
	case hub.IsRepoEnsureFailed(err):
		return KindRepoEnsureFailed
	case hub.IsUploadFailed(err):
		return KindUploadFailed
	default:
		return KindUnknown
	}
}
