package hub

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Confirmer decides whether an upload goes ahead.
type Confirmer interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// PromptConfirmer asks on Out and reads a y/N answer from In. Anything other
// than "y" or "yes" declines, as does end of input.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) Confirm(ctx context.Context, question string) (bool, error) {
	fmt.Fprintf(p.Out, "%s [y/N] ", question)
	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		ch <- answer{line, err}
	}()
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.err != io.EOF {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// Static answers every question with the same value (--yes / --no).
type Static bool

func (s Static) Confirm(context.Context, string) (bool, error) { return bool(s), nil }
