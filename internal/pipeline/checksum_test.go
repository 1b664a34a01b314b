package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sum(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "m-Q8_0.gguf"), "GGUF eight")
	writeFile(t, filepath.Join(dir, "m-Q2_K.gguf"), "GGUF two")
	writeFile(t, filepath.Join(dir, "README.md"), "# not hashed")
	writeFile(t, filepath.Join(dir, ManifestName), "stale\n")

	entries, err := WriteManifest(dir)
	if err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%d want 2", len(entries))
	}
	b, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	want := sum("GGUF two") + "  m-Q2_K.gguf\n" + sum("GGUF eight") + "  m-Q8_0.gguf\n"
	if string(b) != want {
		t.Fatalf("manifest:\n%s\nwant:\n%s", b, want)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		if !manifestLine.MatchString(line) {
			t.Fatalf("line %q does not match the sha256sum format", line)
		}
	}
}

func TestWriteManifest_Empty(t *testing.T) {
	dir := t.TempDir()
	entries, err := WriteManifest(dir)
	if err != nil || len(entries) != 0 {
		t.Fatalf("entries=%v err=%v", entries, err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, ManifestName))
	if len(b) != 0 {
		t.Fatalf("expected empty manifest, got %q", b)
	}
}

func TestVerifyManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.gguf"), "GGUF a")
	writeFile(t, filepath.Join(dir, "b.gguf"), "GGUF b")
	if _, err := WriteManifest(dir); err != nil {
		t.Fatal(err)
	}
	bad, err := VerifyManifest(dir)
	if err != nil || len(bad) != 0 {
		t.Fatalf("clean tree: bad=%v err=%v", bad, err)
	}

	writeFile(t, filepath.Join(dir, "a.gguf"), "GGUF tampered")
	if err := os.Remove(filepath.Join(dir, "b.gguf")); err != nil {
		t.Fatal(err)
	}
	bad, err = VerifyManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(bad) != 2 {
		t.Fatalf("mismatches=%v", bad)
	}
	if bad[0].Filename != "a.gguf" || bad[0].Got != sum("GGUF tampered") {
		t.Fatalf("a: %+v", bad[0])
	}
	if bad[1].Filename != "b.gguf" || bad[1].Got != "" {
		t.Fatalf("b: %+v", bad[1])
	}
}

func TestReadManifest_Malformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ManifestName), "not a checksum line\n")
	if _, err := ReadManifest(dir); err == nil || !strings.Contains(err.Error(), ":1:") {
		t.Fatalf("expected line error, got %v", err)
	}
}
