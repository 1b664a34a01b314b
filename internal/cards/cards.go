// Package cards renders the Markdown model cards (one index card plus one per
// quantization level) and the shared generation config published next to the
// artifacts.
package cards

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"ggufpub/internal/catalog"
	"ggufpub/internal/common/fsutil"
	"ggufpub/internal/config"
	"ggufpub/internal/registry"
	"ggufpub/pkg/types"
)

// File names written by this package.
const (
	ReadmeName       = "README.md"
	SharedConfigName = "generation_config.json"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("cards").Funcs(template.FuncMap{
	"shquote": shellQuote,
	"num":     formatNum,
	"params":  formatParams,
}).ParseFS(templateFS, "templates/*.tmpl"))

// FrontMatter is the YAML header hub viewers read from a card.
type FrontMatter struct {
	License     string   `yaml:"license"`
	Tags        []string `yaml:"tags,omitempty"`
	BaseModel   string   `yaml:"base_model"`
	PipelineTag string   `yaml:"pipeline_tag"`
	Language    []string `yaml:"language,omitempty"`
	Library     string   `yaml:"library_name"`
	QuantizedBy string   `yaml:"quantized_by,omitempty"`
}

// Render returns the front matter as YAML (without the --- fences).
func (fm FrontMatter) Render() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func frontMatter(cfg config.Config, extraTags ...string) FrontMatter {
	tags := append([]string(nil), cfg.Tags...)
	for _, t := range extraTags {
		if t != "" && !contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return FrontMatter{
		License:     cfg.License,
		Tags:        tags,
		BaseModel:   cfg.BaseModel,
		PipelineTag: "text-generation",
		Language:    cfg.Languages,
		Library:     "gguf",
		QuantizedBy: cfg.Author,
	}
}

// Row is one line of the index card's level table.
type Row struct {
	Level          string
	Filename       string
	Size           string
	Quality        string
	Speed          string
	RAM            string
	Recommendation string
	Produced       bool
	Recommended    bool
}

// IndexView is the data behind the top-level README.
type IndexView struct {
	FrontMatter     string
	ModelName       string
	BaseModel       string
	RepoID          string
	Description     string
	Author          string
	License         string
	SourcePrecision string
	Rows            []Row
	Recommended     string
	RecommendedFile string
	Manifest        string
}

// preferredDefault is highlighted in the index when it was produced.
const preferredDefault = "Q4_K_M"

// BuildIndex assembles the index view for the configured levels. arts holds
// the artifacts present on disk; levels without one are listed unlinked.
func BuildIndex(cfg config.Config, p catalog.Profile, arts []types.Artifact, manifest string) (IndexView, error) {
	fm, err := frontMatter(cfg).Render()
	if err != nil {
		return IndexView{}, err
	}
	byLevel := artifactsByLevel(arts)
	v := IndexView{
		FrontMatter:     fm,
		ModelName:       cfg.ModelName,
		BaseModel:       cfg.BaseModel,
		RepoID:          cfg.RepoID,
		Description:     cfg.Description,
		Author:          cfg.Author,
		License:         cfg.License,
		SourcePrecision: cfg.SourcePrecision,
		Manifest:        manifest,
	}
	if v.RepoID == "" {
		v.RepoID = "<owner>/" + cfg.ModelName
	}
	v.Recommended = pickRecommended(cfg.Levels, byLevel)
	for _, l := range cfg.Levels {
		e, _ := p.Lookup(l)
		r := Row{
			Level:          l,
			Filename:       registry.ArtifactName(cfg.ModelName, l),
			Size:           "-",
			Quality:        e.Quality,
			Speed:          e.Speed,
			RAM:            e.RAM,
			Recommendation: e.Recommendation,
			Recommended:    l == v.Recommended,
		}
		if a, ok := byLevel[strings.ToUpper(l)]; ok {
			r.Produced = true
			r.Filename = a.Filename
			r.Size = fsutil.HumanSize(a.Size)
		}
		if r.Recommended {
			v.RecommendedFile = r.Filename
		}
		v.Rows = append(v.Rows, r)
	}
	return v, nil
}

// pickRecommended prefers a produced Q4_K_M, then the first produced level.
// With nothing on disk it falls back to Q4_K_M or the first configured level.
func pickRecommended(levels []string, byLevel map[string]types.Artifact) string {
	produced := func(l string) bool {
		_, ok := byLevel[strings.ToUpper(l)]
		return ok
	}
	first := ""
	for _, l := range levels {
		if strings.EqualFold(l, preferredDefault) && (produced(l) || len(byLevel) == 0) {
			return l
		}
		if first == "" && (produced(l) || len(byLevel) == 0) {
			first = l
		}
	}
	return first
}

// RenderIndex writes the index card to w.
func RenderIndex(w io.Writer, v IndexView) error {
	return templates.ExecuteTemplate(w, "index.md.tmpl", v)
}

// WriteIndex renders the index card to dir/README.md.
func WriteIndex(dir string, v IndexView) (string, error) {
	var buf bytes.Buffer
	if err := RenderIndex(&buf, v); err != nil {
		return "", fmt.Errorf("render index card: %w", err)
	}
	p := filepath.Join(dir, ReadmeName)
	return p, fsutil.WriteFileAtomic(p, buf.Bytes(), 0o644)
}

// VariantView is the data behind one per-level card.
type VariantView struct {
	FrontMatter    string
	ModelName      string
	Level          string
	Filename       string
	Size           string
	SHA256         string
	Quality        string
	Speed          string
	RAM            string
	Recommendation string
	Header         *types.Header
	PromptTemplate string
	Sampling       catalog.Sampling
	Bucket         catalog.Bucket
	Demo           catalog.Demo
	Manifest       string
}

// BuildVariant assembles the card data for one produced artifact.
func BuildVariant(cfg config.Config, p catalog.Profile, a types.Artifact, manifest string) (VariantView, error) {
	fm, err := frontMatter(cfg, strings.ToLower(a.Level)).Render()
	if err != nil {
		return VariantView{}, err
	}
	e, _ := p.Lookup(a.Level)
	return VariantView{
		FrontMatter:    fm,
		ModelName:      cfg.ModelName,
		Level:          a.Level,
		Filename:       a.Filename,
		Size:           fsutil.HumanSize(a.Size),
		SHA256:         a.SHA256,
		Quality:        e.Quality,
		Speed:          e.Speed,
		RAM:            e.RAM,
		Recommendation: e.Recommendation,
		Header:         a.Header,
		PromptTemplate: p.PromptTemplate,
		Sampling:       p.Sampling,
		Bucket:         e.Bucket,
		Demo:           catalog.DemoFor(a.Level),
		Manifest:       manifest,
	}, nil
}

// RenderVariant writes one per-level card to w.
func RenderVariant(w io.Writer, v VariantView) error {
	return templates.ExecuteTemplate(w, "variant.md.tmpl", v)
}

// VariantDir is the folder holding the card for level.
func VariantDir(outDir, model, level string) string {
	return filepath.Join(outDir, model+"-"+level)
}

// WriteVariant renders the card into <outDir>/<model>-<level>/README.md,
// creating the folder as needed.
func WriteVariant(outDir string, v VariantView) (string, error) {
	dir := VariantDir(outDir, v.ModelName, v.Level)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	var buf bytes.Buffer
	if err := RenderVariant(&buf, v); err != nil {
		return "", fmt.Errorf("render %s card: %w", v.Level, err)
	}
	p := filepath.Join(dir, ReadmeName)
	return p, fsutil.WriteFileAtomic(p, buf.Bytes(), 0o644)
}

// SharedConfig is the generation config shared by every level.
type SharedConfig struct {
	ModelName      string           `json:"model_name"`
	BaseModel      string           `json:"base_model"`
	Levels         []string         `json:"quantization_levels"`
	Sampling       catalog.Sampling `json:"sampling"`
	PromptTemplate string           `json:"prompt_template"`
}

// WriteSharedConfig writes dir/generation_config.json.
func WriteSharedConfig(dir string, cfg config.Config, p catalog.Profile) (string, error) {
	sc := SharedConfig{
		ModelName:      cfg.ModelName,
		BaseModel:      cfg.BaseModel,
		Levels:         cfg.Levels,
		Sampling:       p.Sampling,
		PromptTemplate: p.PromptTemplate,
	}
	b, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode shared config: %w", err)
	}
	b = append(b, '\n')
	path := filepath.Join(dir, SharedConfigName)
	return path, fsutil.WriteFileAtomic(path, b, 0o644)
}

func artifactsByLevel(arts []types.Artifact) map[string]types.Artifact {
	m := make(map[string]types.Artifact, len(arts))
	for _, a := range arts {
		m[strings.ToUpper(a.Level)] = a
	}
	return m
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

// shellQuote wraps s in single quotes for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatParams(n uint64) string {
	switch {
	case n >= 1e9:
		return humanize.CommafWithDigits(float64(n)/1e9, 2) + " B"
	case n >= 1e6:
		return humanize.CommafWithDigits(float64(n)/1e6, 1) + " M"
	default:
		return humanize.Comma(int64(n))
	}
}
