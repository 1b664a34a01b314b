package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_ProfileDefaults(t *testing.T) {
	cfg, err := Resolve("", Config{}, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Profile != DefaultProfile || cfg.ModelName != "Llama-3.2-1B-Instruct" {
		t.Fatalf("unexpected profile defaults: %+v", cfg)
	}
	if cfg.OutputDir != "Llama-3.2-1B-Instruct-GGUF" || cfg.QuantizeBin != DefaultQuantizeBin || cfg.HubBin != DefaultHubBin {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.RepoID != "" {
		t.Fatalf("repo id should stay empty without owner, got %q", cfg.RepoID)
	}
	if len(cfg.InputDirs) != 2 || cfg.InputDirs[1] != ".." {
		t.Fatalf("unexpected input dirs: %v", cfg.InputDirs)
	}
	if err := cfg.ValidateForPublish(); err == nil {
		t.Fatalf("expected publish validation to fail without repo id")
	}
	cfg, err = Resolve("llama-3.2-1b", Config{Owner: "acme"}, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RepoID != "acme/Llama-3.2-1B-Instruct" {
		t.Fatalf("repo id should be <owner>/<model-name>, got %q", cfg.RepoID)
	}
	cfg, err = Resolve("llama-3.2-1b", Config{Owner: "acme", RepoID: "acme/Llama-3.2-1B-Instruct-GGUF"}, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.RepoID != "acme/Llama-3.2-1B-Instruct-GGUF" {
		t.Fatalf("explicit repo id should win, got %q", cfg.RepoID)
	}
}

func TestResolve_PrecedenceFileThenOverrides(t *testing.T) {
	file := Config{Profile: "llama-3.1-8b", Owner: "acme", Levels: []string{"Q4_K_M"}, Jobs: 2}
	over := Config{Jobs: 4, QuantizeBin: "/opt/llama/llama-quantize"}
	cfg, err := Resolve("", file, over)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Profile != "llama-3.1-8b" || cfg.ModelName != "Llama-3.1-8B-Instruct" {
		t.Fatalf("file profile not honored: %+v", cfg)
	}
	if cfg.Jobs != 4 || cfg.QuantizeBin != "/opt/llama/llama-quantize" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.Levels) != 1 || cfg.Levels[0] != "Q4_K_M" {
		t.Fatalf("file levels not applied: %v", cfg.Levels)
	}
	if cfg.RepoID != "acme/Llama-3.1-8B-Instruct" {
		t.Fatalf("unexpected repo: %q", cfg.RepoID)
	}
	if cfg.Author != "acme" {
		t.Fatalf("author should default to owner, got %q", cfg.Author)
	}
	if err := cfg.ValidateForPublish(); err != nil {
		t.Fatalf("publish validation: %v", err)
	}

	// explicit profile argument wins over the file
	cfg, err = Resolve("llama-3.2-3b", file, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.ModelName != "Llama-3.2-3B-Instruct" {
		t.Fatalf("profile arg ignored: %+v", cfg)
	}
}

func TestResolve_ValidationErrors(t *testing.T) {
	cases := map[string]Config{
		"unknown profile": {Profile: "nope"},
		"bad level":       {Levels: []string{"Q4 K M"}},
		"duplicate level": {Levels: []string{"Q4_K_M", "q4_k_m"}},
		"bad model name":  {ModelName: "../escape"},
		"bad repo":        {RepoID: "no-slash"},
	}
	for name, file := range cases {
		_, err := Resolve("", file, Config{})
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !IsValidationError(err) {
			t.Fatalf("%s: expected ValidationError, got %T %v", name, err, err)
		}
	}
}

func TestPaths(t *testing.T) {
	wd := t.TempDir()
	cfg, err := Resolve("", Config{WorkDir: wd}, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	out, err := cfg.OutputPath()
	if err != nil {
		t.Fatal(err)
	}
	if out != filepath.Join(wd, "Llama-3.2-1B-Instruct-GGUF") {
		t.Fatalf("unexpected output path %q", out)
	}
	abs := filepath.Join(wd, "elsewhere")
	cfg.OutputDir = abs
	if out, _ := cfg.OutputPath(); out != abs {
		t.Fatalf("absolute output dir changed: %q", out)
	}
	if cfg.InputFilename() != "Llama-3.2-1B-Instruct-f16.gguf" {
		t.Fatalf("unexpected input name %q", cfg.InputFilename())
	}
	if cfg.UploadBackoff().Seconds() != DefaultUploadBackoffS {
		t.Fatalf("unexpected backoff %v", cfg.UploadBackoff())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvQuantizeBin, "/x/q")
	t.Setenv(EnvOwner, "acme")
	os.Unsetenv(EnvHubBin)
	c := FromEnv()
	if c.QuantizeBin != "/x/q" || c.Owner != "acme" || c.HubBin != "" {
		t.Fatalf("unexpected env config: %+v", c)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("GGUFPUB_TEST_INT", "42")
	t.Setenv("GGUFPUB_TEST_BOOL", "yes")
	if EnvInt("GGUFPUB_TEST_INT", 0) != 42 || EnvInt("GGUFPUB_TEST_MISSING", 7) != 7 {
		t.Fatalf("EnvInt")
	}
	if !EnvBool("GGUFPUB_TEST_BOOL", false) || EnvBool("GGUFPUB_TEST_MISSING", false) {
		t.Fatalf("EnvBool")
	}
	if EnvStr("GGUFPUB_TEST_MISSING", "d") != "d" {
		t.Fatalf("EnvStr")
	}
}
