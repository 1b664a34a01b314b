package hub

import (
	"errors"
	"fmt"
	"strings"
)

// RepoEnsureError reports that the remote repository could not be created
// and did not already exist.
type RepoEnsureError struct {
	Repo   string
	Output string
	Err    error
}

func (e RepoEnsureError) Error() string {
	msg := fmt.Sprintf("ensure repo %s: %v", e.Repo, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + lastLine(out)
	}
	return msg
}

func (e RepoEnsureError) Unwrap() error { return e.Err }

// IsRepoEnsureFailed reports whether err came from repository creation.
func IsRepoEnsureFailed(err error) bool {
	var e RepoEnsureError
	return errors.As(err, &e)
}

// UploadError reports that every upload attempt failed. Err is the last
// attempt's error.
type UploadError struct {
	Repo     string
	Attempts int
	Err      error
}

func (e UploadError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("upload to %s failed after %d attempts: %v", e.Repo, e.Attempts, e.Err)
	}
	return fmt.Sprintf("upload to %s failed: %v", e.Repo, e.Err)
}

func (e UploadError) Unwrap() error { return e.Err }

// IsUploadFailed reports whether err came from the upload step.
func IsUploadFailed(err error) bool {
	var e UploadError
	return errors.As(err, &e)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
