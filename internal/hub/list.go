package hub

import (
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ggufpub/internal/common/fsutil"
)

// LocalFile is one file that will be uploaded.
type LocalFile struct {
	Path string // relative to the listed directory, slash separated
	Size int64
}

// ListLocal enumerates the publishable files under dir: every *.gguf,
// *.md and *.json file at any depth plus SHA256SUMS. The result is sorted
// by path.
func ListLocal(dir string) ([]LocalFile, error) {
	var out []LocalFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !publishable(d.Name()) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, LocalFile{Path: filepath.ToSlash(rel), Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func publishable(name string) bool {
	if name == "SHA256SUMS" {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gguf", ".md", ".json":
		return true
	}
	return false
}

// RenderFiles writes files as a table with a total row.
func RenderFiles(w io.Writer, files []LocalFile) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"File", "Size"})
	var total int64
	for _, f := range files {
		t.AppendRow(table.Row{f.Path, fsutil.HumanSize(f.Size)})
		total += f.Size
	}
	t.AppendFooter(table.Row{"Total", fsutil.HumanSize(total)})
	t.Render()
}
