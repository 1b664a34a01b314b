// Package catalog holds the hand-authored lookup data used in model cards:
// per-level quality and speed, per-profile RAM estimates and recommendations,
// and the demonstration prompts chosen by level tier.
//
// Everything here is static. RAM figures are estimates written for each model
// size and are not derived from the produced artifacts.
package catalog

import (
	"sort"
	"strings"
)

// Bucket selects the demonstration prompt for a level.
type Bucket string

const (
	BucketReasoning Bucket = "reasoning"
	BucketCreative  Bucket = "creative"
	BucketBasic     Bucket = "basic"
)

// Demo is a sample prompt and the temperature it is shown with.
type Demo struct {
	Prompt      string
	Temperature float64
}

var demos = map[Bucket]Demo{
	BucketReasoning: {
		Prompt:      "A train leaves at 3 PM at 60 km/h. A second train leaves the same station at 4 PM at 80 km/h. When does the second train catch up? Explain step by step.",
		Temperature: 0.6,
	},
	BucketCreative: {
		Prompt:      "Write a short poem about a lighthouse keeper who talks to the sea.",
		Temperature: 0.8,
	},
	BucketBasic: {
		Prompt:      "What is the capital of France? Answer in one sentence.",
		Temperature: 0.1,
	},
}

// levelTraits is quality and speed per level, shared by every model size.
var levelTraits = map[string]struct {
	Quality string
	Speed   string
	Bucket  Bucket
}{
	"F16":    {"Reference (100%)", "Slow", BucketReasoning},
	"BF16":   {"Reference (100%)", "Slow", BucketReasoning},
	"Q8_0":   {"Excellent (~99%)", "Moderate", BucketReasoning},
	"Q6_K":   {"Very high (~98%)", "Fast", BucketReasoning},
	"Q5_K_M": {"High (~97%)", "Fast", BucketReasoning},
	"Q5_K_S": {"High (~96%)", "Fast", BucketReasoning},
	"Q4_K_M": {"Good (~95%)", "Faster", BucketCreative},
	"Q4_K_S": {"Good (~94%)", "Faster", BucketCreative},
	"Q4_0":   {"Good (~93%)", "Faster", BucketCreative},
	"IQ4_XS": {"Good (~94%)", "Faster", BucketCreative},
	"Q3_K_L": {"Fair (~91%)", "Fastest", BucketBasic},
	"Q3_K_M": {"Fair (~90%)", "Fastest", BucketBasic},
	"Q3_K_S": {"Fair (~88%)", "Fastest", BucketBasic},
	"Q2_K":   {"Low (~80%)", "Fastest", BucketBasic},
}

// Entry is the card data for one (profile, level) pair.
type Entry struct {
	Level          string
	Quality        string
	Speed          string
	RAM            string
	Recommendation string
	Bucket         Bucket
}

// Sampling holds the recommended generation parameters for a model.
type Sampling struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	TopK          int     `json:"top_k"`
	RepeatPenalty float64 `json:"repeat_penalty"`
	ContextLength int     `json:"context_length"`
}

// Profile is the built-in description of one supported model size.
type Profile struct {
	Name            string
	ModelName       string
	BaseModel       string
	License         string
	SourcePrecision string
	Levels          []string
	Languages       []string
	Tags            []string
	Description     string
	PromptTemplate  string
	Sampling        Sampling
	// per-level RAM estimate and recommendation
	sizing map[string][2]string
}

// Lookup returns the card entry for level within profile. Levels without a
// hand-authored row still get the shared quality and speed when known.
func (p Profile) Lookup(level string) (Entry, bool) {
	key := strings.ToUpper(level)
	tr, known := levelTraits[key]
	e := Entry{Level: level, Quality: "n/a", Speed: "n/a", RAM: "n/a", Recommendation: "No recommendation recorded for this level.", Bucket: BucketFor(level)}
	if known {
		e.Quality, e.Speed = tr.Quality, tr.Speed
	}
	sz, ok := p.sizing[key]
	if ok {
		e.RAM, e.Recommendation = sz[0], sz[1]
	}
	return e, known && ok
}

// BucketFor maps a level to its demonstration tier. Unknown levels are
// treated as basic.
func BucketFor(level string) Bucket {
	if tr, ok := levelTraits[strings.ToUpper(level)]; ok {
		return tr.Bucket
	}
	return BucketBasic
}

// DemoFor returns the demonstration prompt for level.
func DemoFor(level string) Demo { return demos[BucketFor(level)] }

// KnownLevel reports whether level has shared traits in the catalog.
func KnownLevel(level string) bool {
	_, ok := levelTraits[strings.ToUpper(level)]
	return ok
}

// Get returns the built-in profile by name.
func Get(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Names returns the built-in profile names, sorted.
func Names() []string {
	out := make([]string, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
