package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"ggufpub/internal/catalog"
	"ggufpub/internal/common/fsutil"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultProfile         = "llama-3.2-1b"
	DefaultQuantizeBin     = "llama-quantize"
	DefaultHubBin          = "huggingface-cli"
	DefaultSourcePrecision = "f16"
	DefaultJobs            = 1
	DefaultUploadAttempts  = 1
	DefaultUploadBackoffS  = 5
)

var (
	levelRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	nameRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	repoRe  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*/[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// ValidationError reports a config field that cannot be used.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string { return "invalid config: " + e.Field + ": " + e.Reason }

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var e ValidationError
	return errors.As(err, &e)
}

// FromProfile returns a Config pre-filled from a built-in profile.
func FromProfile(name string) (Config, error) {
	p, ok := catalog.Get(name)
	if !ok {
		return Config{}, ValidationError{Field: "profile", Reason: fmt.Sprintf("unknown profile %q (known: %s)", name, strings.Join(catalog.Names(), ", "))}
	}
	return Config{
		Profile:         p.Name,
		ModelName:       p.ModelName,
		BaseModel:       p.BaseModel,
		Description:     p.Description,
		SourcePrecision: p.SourcePrecision,
		Levels:          append([]string(nil), p.Levels...),
		License:         p.License,
		Languages:       append([]string(nil), p.Languages...),
		Tags:            append([]string(nil), p.Tags...),
	}, nil
}

// Merge overlays every non-zero field of o onto c.
func (c Config) Merge(o Config) Config {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(v) > 0 {
			*dst = append([]string(nil), v...)
		}
	}
	setInt := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}
	setStr(&c.Profile, o.Profile)
	setStr(&c.ModelName, o.ModelName)
	setStr(&c.BaseModel, o.BaseModel)
	setStr(&c.Description, o.Description)
	setStr(&c.SourcePrecision, o.SourcePrecision)
	setList(&c.Levels, o.Levels)
	setStr(&c.Owner, o.Owner)
	setStr(&c.RepoID, o.RepoID)
	setStr(&c.License, o.License)
	setList(&c.Languages, o.Languages)
	setList(&c.Tags, o.Tags)
	setStr(&c.Author, o.Author)
	setStr(&c.OutputDir, o.OutputDir)
	setStr(&c.WorkDir, o.WorkDir)
	setList(&c.InputDirs, o.InputDirs)
	setStr(&c.QuantizeBin, o.QuantizeBin)
	setStr(&c.HubBin, o.HubBin)
	setStr(&c.CommitMessage, o.CommitMessage)
	setInt(&c.Jobs, o.Jobs)
	setInt(&c.UploadAttempts, o.UploadAttempts)
	setInt(&c.UploadBackoffS, o.UploadBackoffS)
	return c
}

// Resolve builds the effective config: profile defaults, then the file config,
// then overrides, then package defaults. The result is validated.
// An empty profile falls back to file.Profile and then DefaultProfile.
func Resolve(profile string, file Config, overrides Config) (Config, error) {
	if profile == "" {
		profile = file.Profile
	}
	if profile == "" {
		profile = DefaultProfile
	}
	base, err := FromProfile(profile)
	if err != nil {
		return Config{}, err
	}
	file.Profile = ""
	cfg := base.Merge(file).Merge(overrides)
	cfg.Profile = profile
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with package defaults.
func (c *Config) ApplyDefaults() {
	if c.SourcePrecision == "" {
		c.SourcePrecision = DefaultSourcePrecision
	}
	if c.WorkDir == "" {
		c.WorkDir = "."
	}
	if len(c.InputDirs) == 0 {
		c.InputDirs = []string{".", ".."}
	}
	if c.OutputDir == "" && c.ModelName != "" {
		c.OutputDir = c.ModelName + "-GGUF"
	}
	if c.RepoID == "" && c.Owner != "" && c.ModelName != "" {
		c.RepoID = c.Owner + "/" + c.ModelName
	}
	if c.Author == "" {
		c.Author = c.Owner
	}
	if c.QuantizeBin == "" {
		c.QuantizeBin = DefaultQuantizeBin
	}
	if c.HubBin == "" {
		c.HubBin = DefaultHubBin
	}
	if c.CommitMessage == "" && c.ModelName != "" {
		c.CommitMessage = "Upload " + c.ModelName + " GGUF quantizations"
	}
	if c.Jobs <= 0 {
		c.Jobs = DefaultJobs
	}
	if c.UploadAttempts <= 0 {
		c.UploadAttempts = DefaultUploadAttempts
	}
	if c.UploadBackoffS <= 0 {
		c.UploadBackoffS = DefaultUploadBackoffS
	}
}

// Validate checks the fields every stage relies on. Publishing additionally
// needs ValidateForPublish.
func (c Config) Validate() error {
	if !nameRe.MatchString(c.ModelName) {
		return ValidationError{Field: "model_name", Reason: fmt.Sprintf("%q is not a usable file name", c.ModelName)}
	}
	if !levelRe.MatchString(c.SourcePrecision) {
		return ValidationError{Field: "source_precision", Reason: fmt.Sprintf("%q", c.SourcePrecision)}
	}
	if len(c.Levels) == 0 {
		return ValidationError{Field: "levels", Reason: "at least one level is required"}
	}
	seen := make(map[string]bool, len(c.Levels))
	for _, l := range c.Levels {
		if !levelRe.MatchString(l) {
			return ValidationError{Field: "levels", Reason: fmt.Sprintf("%q is not a level identifier", l)}
		}
		k := strings.ToUpper(l)
		if seen[k] {
			return ValidationError{Field: "levels", Reason: fmt.Sprintf("duplicate level %q", l)}
		}
		seen[k] = true
	}
	if c.OutputDir == "" {
		return ValidationError{Field: "output_dir", Reason: "empty"}
	}
	if c.RepoID != "" && !repoRe.MatchString(c.RepoID) {
		return ValidationError{Field: "repo_id", Reason: fmt.Sprintf("%q must look like owner/name", c.RepoID)}
	}
	if c.Jobs < 1 {
		return ValidationError{Field: "jobs", Reason: "must be >= 1"}
	}
	return nil
}

// ValidateForPublish checks the fields needed to talk to the hub.
func (c Config) ValidateForPublish() error {
	if c.RepoID == "" {
		return ValidationError{Field: "repo_id", Reason: "set repo_id or owner to publish"}
	}
	if c.CommitMessage == "" {
		return ValidationError{Field: "commit_message", Reason: "empty"}
	}
	return nil
}

// UploadBackoff returns the delay between upload attempts.
func (c Config) UploadBackoff() time.Duration {
	return time.Duration(c.UploadBackoffS) * time.Second
}

// InputFilename is the conventional source weight filename.
func (c Config) InputFilename() string {
	return c.ModelName + "-" + c.SourcePrecision + ".gguf"
}

// OutputPath returns the absolute output directory, expanding '~' and
// resolving relative paths against WorkDir.
func (c Config) OutputPath() (string, error) {
	return c.abs(c.OutputDir)
}

// WorkPath returns WorkDir as an absolute path.
func (c Config) WorkPath() (string, error) {
	wd, err := fsutil.ExpandHome(c.WorkDir)
	if err != nil {
		return "", err
	}
	return filepath.Abs(wd)
}

func (c Config) abs(p string) (string, error) {
	p, err := fsutil.ExpandHome(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	wd, err := c.WorkPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}
