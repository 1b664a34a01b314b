package pipeline

import (
	"path/filepath"

	"ggufpub/internal/common/fsutil"
	"ggufpub/internal/config"
)

// ResolveInput locates the source weights "<model>-<precision>.gguf" by
// checking each configured input dir (relative to WorkDir) in order.
// The first regular file wins; no match is an InputNotFoundError.
func ResolveInput(cfg config.Config) (string, error) {
	name := cfg.InputFilename()
	wd, err := cfg.WorkPath()
	if err != nil {
		return "", err
	}
	var searched []string
	for _, d := range cfg.InputDirs {
		d, err := fsutil.ExpandHome(d)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(wd, d)
		}
		p := filepath.Join(d, name)
		searched = append(searched, p)
		if fsutil.ExistsFile(p) {
			return p, nil
		}
	}
	return "", InputNotFoundError{Filename: name, Searched: searched}
}
