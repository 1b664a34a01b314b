package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"ggufpub/internal/executil"
	"ggufpub/pkg/types"
)

func newQuantizer(r executil.Runner, jobs int) (*Quantizer, *MemoryPublisher) {
	ev := NewMemoryPublisher()
	return &Quantizer{Bin: "quantize", Runner: r, Jobs: jobs, Log: zerolog.Nop(), Events: ev}, ev
}

func TestQuantizer_RunInOrder(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	q, ev := newQuantizer(r, 1)
	levels := []string{"Q8_0", "Q4_K_M", "Q2_K"}
	res, err := q.Run(context.Background(), "/in.gguf", dir, "m", levels)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("results=%d", len(res))
	}
	for i, l := range levels {
		if res[i].Level != l || res[i].Skipped {
			t.Fatalf("result %d: %+v", i, res[i])
		}
		if r.calls[i].Args[2] != l {
			t.Fatalf("call %d level=%s want %s", i, r.calls[i].Args[2], l)
		}
		want := filepath.Join(dir, "m-"+l+".gguf")
		if res[i].Artifact.Path != want || res[i].Artifact.Size != int64(4+len(l)) {
			t.Fatalf("artifact %+v", res[i].Artifact)
		}
	}
	if got := r.calls[0].String(); got != "quantize /in.gguf "+filepath.Join(dir, "m-Q8_0.gguf")+" Q8_0" {
		t.Fatalf("cmd=%q", got)
	}
	if ev.Count(EventLevelDone) != 3 {
		t.Fatalf("level_done events=%d", ev.Count(EventLevelDone))
	}
}

func TestQuantizer_SkipsExisting(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	q, _ := newQuantizer(r, 1)
	levels := []string{"Q8_0", "Q4_K_M"}
	if _, err := q.Run(context.Background(), "/in.gguf", dir, "m", levels); err != nil {
		t.Fatal(err)
	}
	q2, ev := newQuantizer(r, 1)
	res, err := q2.Run(context.Background(), "/in.gguf", dir, "m", levels)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if r.count() != 2 {
		t.Fatalf("quantizer invoked %d times, want 2 total", r.count())
	}
	for _, lr := range res {
		if !lr.Skipped {
			t.Fatalf("%s not skipped", lr.Level)
		}
	}
	if ev.Count(EventLevelSkipped) != 2 {
		t.Fatalf("skipped events=%d", ev.Count(EventLevelSkipped))
	}
}

func TestQuantizer_CorruptLeftoverIsRemoved(t *testing.T) {
	dir := t.TempDir()
	leftover := filepath.Join(dir, "m-Q8_0.gguf")
	writeFile(t, leftover, "junk")
	r := &fakeRunner{}
	q, _ := newQuantizer(r, 1)
	_, err := q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q8_0"})
	if !IsInvalidArtifact(err) {
		t.Fatalf("expected InvalidArtifact, got %v", err)
	}
	if exists(leftover) {
		t.Fatal("corrupt leftover should be removed")
	}
	if r.count() != 0 {
		t.Fatalf("quantizer should not run, calls=%d", r.count())
	}
}

func TestQuantizer_FailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{fail: map[string]bool{"Q6_K": true}}
	q, ev := newQuantizer(r, 1)
	_, err := q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q8_0", "Q6_K", "Q2_K"})
	if !IsQuantizeFailed(err) {
		t.Fatalf("expected QuantizeFailed, got %v", err)
	}
	var qf QuantizeFailedError
	if !errors.As(err, &qf) || qf.Level != "Q6_K" {
		t.Fatalf("error level: %+v", qf)
	}
	if !errors.Is(err, errExit) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	if exists(filepath.Join(dir, "m-Q6_K.gguf")) {
		t.Fatal("partial output should be removed")
	}
	if exists(filepath.Join(dir, "m-Q2_K.gguf")) || r.count() != 2 {
		t.Fatalf("levels after the failure must not run, calls=%d", r.count())
	}
	if ev.Count(EventLevelFailed) != 1 {
		t.Fatalf("failed events=%d", ev.Count(EventLevelFailed))
	}
}

func TestQuantizer_InvalidOutput(t *testing.T) {
	for name, r := range map[string]*fakeRunner{
		"bad magic": {bad: map[string]bool{"Q4_0": true}},
		"empty":     {empty: map[string]bool{"Q4_0": true}},
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			q, _ := newQuantizer(r, 1)
			_, err := q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q4_0"})
			if Kind(err) != KindInvalidArtifact {
				t.Fatalf("kind=%s err=%v", Kind(err), err)
			}
			if exists(filepath.Join(dir, "m-Q4_0.gguf")) {
				t.Fatal("invalid output should be removed")
			}
		})
	}
}

func TestQuantizer_ParallelKeepsOrderAndCancels(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	q, _ := newQuantizer(r, 3)
	levels := []string{"Q8_0", "Q6_K", "Q5_K_M", "Q4_K_M", "Q3_K_M", "Q2_K"}
	res, err := q.Run(context.Background(), "/in.gguf", dir, "m", levels)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, l := range levels {
		if res[i].Level != l {
			t.Fatalf("order: got %s at %d", res[i].Level, i)
		}
	}

	dir2 := t.TempDir()
	r2 := &fakeRunner{block: map[string]bool{"Q8_0": true}, fail: map[string]bool{"Q6_K": true}}
	q2, _ := newQuantizer(r2, 2)
	_, err = q2.Run(context.Background(), "/in.gguf", dir2, "m", []string{"Q8_0", "Q6_K"})
	var qf QuantizeFailedError
	if !errors.As(err, &qf) || qf.Level != "Q6_K" {
		t.Fatalf("expected Q6_K failure, got %v", err)
	}
}

func TestQuantizer_HeaderInspection(t *testing.T) {
	dir := t.TempDir()
	q, _ := newQuantizer(&fakeRunner{}, 1)
	q.Inspect = func(string) (*types.Header, error) {
		return &types.Header{Architecture: "llama", BitsPerWeight: 8.5}, nil
	}
	res, err := q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q8_0"})
	if err != nil {
		t.Fatal(err)
	}
	if h := res[0].Artifact.Header; h == nil || h.Architecture != "llama" {
		t.Fatalf("header %+v", h)
	}

	q.Inspect = func(string) (*types.Header, error) { return nil, errors.New("truncated") }
	res, err = q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q8_0"})
	if err != nil {
		t.Fatalf("inspection failure must not fail the run: %v", err)
	}
	if res[0].Artifact.Header != nil {
		t.Fatal("header should be nil after failed inspection")
	}
}

func TestQuantizer_RealProcess(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("no executable path: %v", err)
	}
	dir := t.TempDir()
	q, _ := newQuantizer(executil.OS{}, 1)
	q.Bin = exe

	t.Setenv("PIPELINE_FAKE_QUANTIZE", "ok")
	res, err := q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q5_K_M"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, _ := os.ReadFile(res[0].Artifact.Path)
	if string(b) != "GGUFQ5_K_M" {
		t.Fatalf("output %q", b)
	}

	t.Setenv("PIPELINE_FAKE_QUANTIZE", "fail")
	_, err = q.Run(context.Background(), "/in.gguf", dir, "m", []string{"Q3_K_S"})
	var qf QuantizeFailedError
	if !errors.As(err, &qf) || qf.ExitCode != 4 {
		t.Fatalf("expected exit 4, got %v", err)
	}
	if exists(filepath.Join(dir, "m-Q3_K_S.gguf")) {
		t.Fatal("partial output should be removed")
	}
}

func TestValidateArtifact(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.gguf")
	writeFile(t, good, "GGUF\x03\x00\x00\x00")
	a, err := ValidateArtifact("Q8_0", good)
	if err != nil || a.Size != 8 || a.Filename != "good.gguf" {
		t.Fatalf("a=%+v err=%v", a, err)
	}
	short := filepath.Join(dir, "short.gguf")
	writeFile(t, short, "GG")
	if _, err := ValidateArtifact("Q8_0", short); !IsInvalidArtifact(err) {
		t.Fatalf("short file: %v", err)
	}
	if _, err := ValidateArtifact("Q8_0", filepath.Join(dir, "missing.gguf")); !IsInvalidArtifact(err) {
		t.Fatalf("missing file: %v", err)
	}
}

func TestInspectHeader_NotGGUF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "x.gguf")
	writeFile(t, p, "GGUF")
	if _, err := InspectHeader(p); err == nil {
		t.Fatal("expected parse error for truncated file")
	}
}
