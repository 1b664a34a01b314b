package hub

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Publisher ensures the remote repository, shows what will be sent, asks for
// confirmation and uploads.
type Publisher struct {
	Client  *Client
	Confirm Confirmer
	Log     zerolog.Logger
	Out     io.Writer
}

// Publish uploads dir to repoID. It returns false with a nil error when the
// upload was declined.
func (p *Publisher) Publish(ctx context.Context, repoID, dir, message string) (bool, error) {
	if err := p.Client.EnsureRepo(ctx, repoID); err != nil {
		return false, err
	}
	files, err := ListLocal(dir)
	if err != nil {
		return false, fmt.Errorf("list %s: %w", dir, err)
	}
	if p.Out != nil {
		fmt.Fprintf(p.Out, "Files to upload to %s:\n", repoID)
		RenderFiles(p.Out, files)
	}
	ok, err := p.Confirm.Confirm(ctx, fmt.Sprintf("Upload %d files to %s?", len(files), repoID))
	if err != nil {
		return false, err
	}
	if !ok {
		p.Log.Info().Str("repo", repoID).Msg("upload declined")
		return false, nil
	}
	if err := p.Client.Upload(ctx, repoID, dir, message); err != nil {
		return false, err
	}
	return true, nil
}
