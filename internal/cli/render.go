package cli

import (
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"ggufpub/internal/catalog"
	"ggufpub/internal/common/fsutil"
	"ggufpub/internal/pipeline"
	"ggufpub/pkg/types"
)

type inspectRow struct {
	Artifact types.Artifact
	Header   *types.Header
	Err      error
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderInspect(w io.Writer, rows []inspectRow) {
	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Size", "Architecture", "File type", "Parameters", "BPW"})
	for _, r := range rows {
		if r.Err != nil || r.Header == nil {
			msg := "unreadable header"
			if r.Err != nil {
				msg = r.Err.Error()
			}
			t.AppendRow(table.Row{r.Artifact.Filename, fsutil.HumanSize(r.Artifact.Size), "error: " + msg, "", "", ""})
			continue
		}
		h := r.Header
		t.AppendRow(table.Row{
			r.Artifact.Filename,
			fsutil.HumanSize(r.Artifact.Size),
			h.Architecture,
			h.FileType,
			humanize.SIWithDigits(float64(h.Parameters), 2, ""),
			humanize.FtoaWithDigits(h.BitsPerWeight, 2),
		})
	}
	t.Render()
}

func renderProfiles(w io.Writer, names []string) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Profile", "Model", "Base model", "Levels"})
	for _, n := range names {
		p, ok := catalog.Get(n)
		if !ok {
			continue
		}
		t.AppendRow(table.Row{p.Name, p.ModelName, p.BaseModel, strings.Join(p.Levels, ", ")})
	}
	t.Render()
}

func renderMismatches(w io.Writer, bad []pipeline.Mismatch) {
	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Expected", "Actual"})
	for _, m := range bad {
		got := m.Got
		if got == "" {
			got = "missing"
		}
		t.AppendRow(table.Row{m.Filename, m.Want, got})
	}
	t.Render()
}
