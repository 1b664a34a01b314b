package pipeline

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ggufpub/internal/common/fsutil"
	"ggufpub/internal/registry"
	"ggufpub/pkg/types"
)

// ManifestName is the checksum manifest written into the output directory.
const ManifestName = "SHA256SUMS"

var manifestLine = regexp.MustCompile(`^([0-9a-f]{64})  (.+)$`)

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteManifest hashes every *.gguf directly under dir (sorted by filename)
// and writes "<hash>  <filename>" lines to dir/SHA256SUMS, replacing any
// previous manifest.
func WriteManifest(dir string) ([]types.ChecksumEntry, error) {
	arts, err := registry.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]types.ChecksumEntry, 0, len(arts))
	var buf bytes.Buffer
	for _, a := range arts {
		sum, err := HashFile(a.Path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.ChecksumEntry{Hash: sum, Filename: a.Filename})
		fmt.Fprintf(&buf, "%s  %s\n", sum, a.Filename)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, ManifestName), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", ManifestName, err)
	}
	return entries, nil
}

// ReadManifest parses dir/SHA256SUMS.
func ReadManifest(dir string) ([]types.ChecksumEntry, error) {
	f, err := os.Open(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []types.ChecksumEntry
	s := bufio.NewScanner(f)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimRight(s.Text(), "\r")
		if line == "" {
			continue
		}
		m := manifestLine.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%s:%d: malformed line", ManifestName, n)
		}
		out = append(out, types.ChecksumEntry{Hash: m[1], Filename: m[2]})
	}
	return out, s.Err()
}

// Mismatch is a manifest entry whose file is missing or hashes differently.
type Mismatch struct {
	Filename string
	Want     string
	Got      string // empty when the file is missing
}

// VerifyManifest re-hashes every file listed in dir/SHA256SUMS.
func VerifyManifest(dir string) ([]Mismatch, error) {
	entries, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	var bad []Mismatch
	for _, e := range entries {
		got, err := HashFile(filepath.Join(dir, e.Filename))
		if err != nil {
			if os.IsNotExist(err) {
				bad = append(bad, Mismatch{Filename: e.Filename, Want: e.Hash})
				continue
			}
			return nil, err
		}
		if got != e.Hash {
			bad = append(bad, Mismatch{Filename: e.Filename, Want: e.Hash, Got: got})
		}
	}
	return bad, nil
}

// manifestIndex maps filename to hash.
func manifestIndex(entries []types.ChecksumEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Filename] = e.Hash
	}
	return m
}
