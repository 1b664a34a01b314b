package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the job description for one quantize-and-publish run.
// Zero values mean "unspecified": they are filled from the selected profile
// and then from package defaults (see Resolve).
type Config struct {
	Profile         string   `json:"profile" yaml:"profile" toml:"profile"`
	ModelName       string   `json:"model_name" yaml:"model_name" toml:"model_name"`
	BaseModel       string   `json:"base_model" yaml:"base_model" toml:"base_model"`
	Description     string   `json:"description" yaml:"description" toml:"description"`
	SourcePrecision string   `json:"source_precision" yaml:"source_precision" toml:"source_precision"`
	Levels          []string `json:"levels" yaml:"levels" toml:"levels"`
	Owner           string   `json:"owner" yaml:"owner" toml:"owner"`
	RepoID          string   `json:"repo_id" yaml:"repo_id" toml:"repo_id"`
	License         string   `json:"license" yaml:"license" toml:"license"`
	Languages       []string `json:"languages" yaml:"languages" toml:"languages"`
	Tags            []string `json:"tags" yaml:"tags" toml:"tags"`
	Author          string   `json:"author" yaml:"author" toml:"author"`
	OutputDir       string   `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	WorkDir         string   `json:"work_dir" yaml:"work_dir" toml:"work_dir"`
	InputDirs       []string `json:"input_dirs" yaml:"input_dirs" toml:"input_dirs"`
	QuantizeBin     string   `json:"quantize_bin" yaml:"quantize_bin" toml:"quantize_bin"`
	HubBin          string   `json:"hub_bin" yaml:"hub_bin" toml:"hub_bin"`
	CommitMessage   string   `json:"commit_message" yaml:"commit_message" toml:"commit_message"`
	Jobs            int      `json:"jobs" yaml:"jobs" toml:"jobs"`
	UploadAttempts  int      `json:"upload_attempts" yaml:"upload_attempts" toml:"upload_attempts"`
	UploadBackoffS  int      `json:"upload_backoff_seconds" yaml:"upload_backoff_seconds" toml:"upload_backoff_seconds"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
