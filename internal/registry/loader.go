package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ggufpub/internal/common/fsutil"
	"ggufpub/pkg/types"
)

// GGUFScanner lists *.gguf artifacts in a directory.
type GGUFScanner struct {
	// ModelName, when set, is stripped from filenames to recover the level
	// ("<model>-<level>.gguf").
	ModelName string
}

func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan returns the *.gguf files directly under dir, sorted by filename.
// Size is filled from the directory entry; hashes and headers are left empty.
func (s *GGUFScanner) Scan(dir string) ([]types.Artifact, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []types.Artifact
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !IsGGUF(name) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		out = append(out, types.Artifact{
			Level:    LevelFromFilename(s.ModelName, name),
			Filename: name,
			Path:     filepath.Join(abs, name),
			Size:     fi.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// LoadDir is a convenience wrapper around NewGGUFScanner().Scan.
func LoadDir(dir string) ([]types.Artifact, error) {
	return NewGGUFScanner().Scan(dir)
}

// IsGGUF reports whether name carries the .gguf extension (case-insensitive).
func IsGGUF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gguf")
}

// ArtifactName returns the conventional filename for a model at a level or precision.
func ArtifactName(model, level string) string {
	return model + "-" + level + ".gguf"
}

// LevelFromFilename recovers the level from "<model>-<level>.gguf". Without a
// model name, the text after the last '-' is used.
func LevelFromFilename(model, name string) string {
	stem := name[:len(name)-len(filepath.Ext(name))]
	if model != "" {
		if rest, ok := strings.CutPrefix(stem, model+"-"); ok {
			return rest
		}
	}
	if i := strings.LastIndex(stem, "-"); i >= 0 {
		return stem[i+1:]
	}
	return stem
}
