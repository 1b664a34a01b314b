package hub

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ggufpub/internal/executil"
	"ggufpub/internal/logging"
	"ggufpub/internal/metrics"
)

// Client drives the hub command-line tool. The default tool is
// huggingface-cli; any binary accepting the same subcommands works.
type Client struct {
	Bin    string
	Runner executil.Runner
	Log    zerolog.Logger
	// Attempts is the number of upload tries; values below 1 mean one.
	Attempts int
	Backoff  time.Duration

	sleep func(context.Context, time.Duration) error
}

// NewClient returns a client using the OS process runner.
func NewClient(bin string, log zerolog.Logger) *Client {
	return &Client{Bin: bin, Runner: executil.OS{}, Log: log, Attempts: 1}
}

// EnsureRepo creates the model repository repoID ("owner/name"). A
// repository that already exists counts as success.
func (c *Client) EnsureRepo(ctx context.Context, repoID string) error {
	args := []string{"repo", "create", repoName(repoID), "--type", "model"}
	if owner := repoOwner(repoID); owner != "" {
		args = append(args, "--organization", owner)
	}
	args = append(args, "-y")
	out, err := c.Runner.CombinedOutput(ctx, executil.Cmd{Path: c.Bin, Args: args})
	if err == nil {
		c.Log.Info().Str("repo", repoID).Msg("repository created")
		return nil
	}
	if alreadyExists(string(out)) {
		c.Log.Info().Str("repo", repoID).Msg("repository already exists")
		return nil
	}
	if ctx.Err() != nil {
		return RepoEnsureError{Repo: repoID, Err: ctx.Err()}
	}
	return RepoEnsureError{Repo: repoID, Output: string(out), Err: err}
}

// conflictStatus matches an HTTP 409 status in hub CLI output, not the
// digits inside request ids or hashes.
var conflictStatus = regexp.MustCompile(`\b409\b(?:\s+client error|\s+conflict|:)`)

func alreadyExists(out string) bool {
	lo := strings.ToLower(out)
	return strings.Contains(lo, "already exists") || conflictStatus.MatchString(lo)
}

// Upload pushes the contents of dir to the root of repoID, retrying up to
// Attempts times with Backoff between tries.
func (c *Client) Upload(ctx context.Context, repoID, dir, message string) error {
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := c.Log.With().Str("repo", repoID).Logger()
	var err error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			log.Warn().Err(err).Int("attempt", i).Dur("backoff", c.Backoff).Msg("upload failed, retrying")
			if serr := sleep(ctx, c.Backoff); serr != nil {
				return UploadError{Repo: repoID, Attempts: i - 1, Err: serr}
			}
		}
		err = c.uploadOnce(ctx, log, repoID, dir, message)
		metrics.ObserveUpload(err)
		if err == nil {
			log.Info().Int("attempt", i).Msg("upload complete")
			return nil
		}
		if ctx.Err() != nil {
			return UploadError{Repo: repoID, Attempts: i, Err: ctx.Err()}
		}
	}
	return UploadError{Repo: repoID, Attempts: attempts, Err: err}
}

func (c *Client) uploadOnce(ctx context.Context, log zerolog.Logger, repoID, dir, message string) error {
	stdout := logging.NewLineWriter(log, zerolog.DebugLevel, "stdout")
	stderr := logging.NewLineWriter(log, zerolog.DebugLevel, "stderr")
	defer stdout.Flush()
	defer stderr.Flush()
	return c.Runner.Run(ctx, executil.Cmd{
		Path:   c.Bin,
		Args:   []string{"upload", repoID, dir, ".", "--repo-type", "model", "--commit-message", message},
		Env:    map[string]string{"HF_HUB_DISABLE_PROGRESS_BARS": "1"},
		Stdout: stdout,
		Stderr: stderr,
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func repoName(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func repoOwner(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i]
	}
	return ""
}
