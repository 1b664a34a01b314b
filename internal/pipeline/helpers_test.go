package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"ggufpub/internal/config"
	"ggufpub/internal/executil"
)

// The test binary doubles as a quantizer when PIPELINE_FAKE_QUANTIZE is set:
// it is invoked as "<input> <output> <level>".
func TestMain(m *testing.M) {
	switch os.Getenv("PIPELINE_FAKE_QUANTIZE") {
	case "ok":
		if len(os.Args) != 4 {
			fmt.Fprintln(os.Stderr, "usage: quantize <input> <output> <level>")
			os.Exit(2)
		}
		fmt.Fprintf(os.Stdout, "quantizing %s to %s\n", os.Args[1], os.Args[3])
		if err := os.WriteFile(os.Args[2], []byte("GGUF"+os.Args[3]), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "fail":
		_ = os.WriteFile(os.Args[2], []byte("GGUF partial"), 0o644)
		fmt.Fprintln(os.Stderr, "unsupported tensor type")
		os.Exit(4)
	}
	os.Exit(m.Run())
}

// fakeRunner writes a valid GGUF stub for every quantize call unless the
// level is listed in fail (nonzero exit), bad (wrong magic), empty or block
// (waits for cancellation).
type fakeRunner struct {
	mu    sync.Mutex
	calls []executil.Cmd
	fail  map[string]bool
	bad   map[string]bool
	empty map[string]bool
	block map[string]bool
}

var errExit = errors.New("exit status 1")

func (r *fakeRunner) Run(ctx context.Context, c executil.Cmd) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
	out, level := c.Args[1], c.Args[2]
	switch {
	case r.block[level]:
		<-ctx.Done()
		return ctx.Err()
	case r.fail[level]:
		_ = os.WriteFile(out, []byte("GGUF half"), 0o644)
		return errExit
	case r.bad[level]:
		return os.WriteFile(out, []byte("NOPE"+level), 0o644)
	case r.empty[level]:
		return os.WriteFile(out, nil, 0o644)
	}
	return os.WriteFile(out, []byte("GGUF"+level), 0o644)
}

func (r *fakeRunner) CombinedOutput(ctx context.Context, c executil.Cmd) ([]byte, error) {
	return nil, r.Run(ctx, c)
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

const testModel = "Llama-3.2-1B-Instruct"

// newJob lays out a work dir with the source weights and returns a resolved
// config for it.
func newJob(t *testing.T, levels ...string) config.Config {
	t.Helper()
	wd := t.TempDir()
	writeFile(t, filepath.Join(wd, testModel+"-f16.gguf"), "GGUF source")
	cfg, err := config.Resolve("llama-3.2-1b", config.Config{
		WorkDir:   wd,
		Owner:     "acme",
		Levels:    levels,
		InputDirs: []string{"."},
	}, config.Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return cfg
}

func outDir(t *testing.T, cfg config.Config) string {
	t.Helper()
	p, err := cfg.OutputPath()
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
