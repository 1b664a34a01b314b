package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ggufpub/internal/cards"
	"ggufpub/internal/catalog"
	"ggufpub/internal/config"
	"ggufpub/internal/executil"
	"ggufpub/internal/metrics"
	"ggufpub/internal/registry"
	"ggufpub/pkg/types"
)

// Stage names used in events, logs and metrics.
const (
	StageResolve  = "resolve"
	StageQuantize = "quantize"
	StageChecksum = "checksum"
	StageDocs     = "docs"
	StagePublish  = "publish"
)

// Publisher uploads a finished output directory. It returns false with a nil
// error when the upload was declined.
type Publisher interface {
	Publish(ctx context.Context, repoID, dir, message string) (bool, error)
}

// Options configures a Pipeline. Config must already be resolved.
type Options struct {
	Config config.Config
	// Runner executes the quantizer; nil uses real processes.
	Runner executil.Runner
	// Publisher is required only for Run without SkipPublish and for Publish.
	Publisher   Publisher
	Log         zerolog.Logger
	Events      EventPublisher
	Inspect     HeaderInspector
	SkipPublish bool
}

// Pipeline runs the stages for one resolved job config.
type Pipeline struct {
	cfg     config.Config
	profile catalog.Profile
	runner  executil.Runner
	pub     Publisher
	log     zerolog.Logger
	events  EventPublisher
	inspect HeaderInspector
	skipPub bool
}

// New validates opts and returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	prof, ok := catalog.Get(opts.Config.Profile)
	if !ok {
		return nil, config.ValidationError{Field: "profile", Reason: fmt.Sprintf("unknown profile %q", opts.Config.Profile)}
	}
	p := &Pipeline{
		cfg:     opts.Config,
		profile: prof,
		runner:  opts.Runner,
		pub:     opts.Publisher,
		log:     opts.Log,
		events:  opts.Events,
		inspect: opts.Inspect,
		skipPub: opts.SkipPublish,
	}
	if p.runner == nil {
		p.runner = executil.OS{}
	}
	if p.events == nil {
		p.events = noopPublisher{}
	}
	for _, l := range p.cfg.Levels {
		if !catalog.KnownLevel(l) {
			p.log.Warn().Str("quant", l).Msg("level not in the catalog; its card shows no quality or speed estimate")
		}
	}
	return p, nil
}

// Report summarizes what a run produced.
type Report struct {
	Input     string
	OutputDir string
	Levels    []LevelResult
	Checksums []types.ChecksumEntry
	Docs      []string
	Published bool
	// Declined is set when the upload was offered and refused.
	Declined bool
}

// Quantized counts levels that invoked the quantizer.
func (r Report) Quantized() int {
	n := 0
	for _, l := range r.Levels {
		if !l.Skipped {
			n++
		}
	}
	return n
}

// Skipped counts levels whose output already existed.
func (r Report) Skipped() int { return len(r.Levels) - r.Quantized() }

// Run executes every stage in order and stops at the first error.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var rep Report
	if !p.skipPub {
		if err := p.cfg.ValidateForPublish(); err != nil {
			return rep, err
		}
		if p.pub == nil {
			return rep, fmt.Errorf("pipeline: no publisher configured")
		}
	}
	if err := p.quantize(ctx, &rep); err != nil {
		return rep, err
	}
	arts := make([]types.Artifact, 0, len(rep.Levels))
	for _, l := range rep.Levels {
		arts = append(arts, l.Artifact)
	}
	if err := p.checksum(&rep); err != nil {
		return rep, err
	}
	sums := manifestIndex(rep.Checksums)
	for i := range arts {
		arts[i].SHA256 = sums[arts[i].Filename]
	}
	if err := p.docs(rep.OutputDir, arts, &rep); err != nil {
		return rep, err
	}
	if p.skipPub {
		return rep, nil
	}
	return rep, p.publish(ctx, rep.OutputDir, &rep)
}

// Quantize resolves the input and produces every configured level.
func (p *Pipeline) Quantize(ctx context.Context) (Report, error) {
	var rep Report
	return rep, p.quantize(ctx, &rep)
}

// Checksums rewrites the manifest for the output directory.
func (p *Pipeline) Checksums() (Report, error) {
	rep, err := p.withOutputDir()
	if err != nil {
		return rep, err
	}
	return rep, p.checksum(&rep)
}

// Docs regenerates the cards and shared config from the artifacts already in
// the output directory. Hashes come from an existing manifest when present.
func (p *Pipeline) Docs(ctx context.Context) (Report, error) {
	rep, err := p.withOutputDir()
	if err != nil {
		return rep, err
	}
	scanner := &registry.GGUFScanner{ModelName: p.cfg.ModelName}
	arts, err := scanner.Scan(rep.OutputDir)
	if err != nil {
		return rep, err
	}
	var sums map[string]string
	if entries, err := ReadManifest(rep.OutputDir); err == nil {
		sums = manifestIndex(entries)
	} else if !os.IsNotExist(err) {
		p.log.Warn().Err(err).Msg("ignoring unreadable manifest")
	}
	for i := range arts {
		arts[i].SHA256 = sums[arts[i].Filename]
		if p.inspect != nil {
			if h, err := p.inspect(arts[i].Path); err == nil {
				arts[i].Header = h
			}
		}
	}
	return rep, p.docs(rep.OutputDir, arts, &rep)
}

// Publish uploads the existing output directory.
func (p *Pipeline) Publish(ctx context.Context) (Report, error) {
	if err := p.cfg.ValidateForPublish(); err != nil {
		return Report{}, err
	}
	if p.pub == nil {
		return Report{}, fmt.Errorf("pipeline: no publisher configured")
	}
	rep, err := p.withOutputDir()
	if err != nil {
		return rep, err
	}
	return rep, p.publish(ctx, rep.OutputDir, &rep)
}

func (p *Pipeline) withOutputDir() (Report, error) {
	out, err := p.cfg.OutputPath()
	if err != nil {
		return Report{}, err
	}
	fi, err := os.Stat(out)
	if err != nil {
		return Report{}, fmt.Errorf("output dir: %w", err)
	}
	if !fi.IsDir() {
		return Report{}, fmt.Errorf("output dir %s is not a directory", out)
	}
	return Report{OutputDir: out}, nil
}

func (p *Pipeline) quantize(ctx context.Context, rep *Report) error {
	err := p.stage(StageResolve, func() error {
		in, err := ResolveInput(p.cfg)
		if err != nil {
			return err
		}
		out, err := p.cfg.OutputPath()
		if err != nil {
			return err
		}
		rep.Input, rep.OutputDir = in, out
		p.log.Info().Str("input", in).Str("output_dir", out).Msg("input resolved")
		return nil
	})
	if err != nil {
		return err
	}
	return p.stage(StageQuantize, func() error {
		if err := os.MkdirAll(rep.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		q := &Quantizer{
			Bin:     p.cfg.QuantizeBin,
			Runner:  p.runner,
			Jobs:    p.cfg.Jobs,
			Log:     p.log,
			Events:  p.events,
			Inspect: p.inspect,
		}
		res, err := q.Run(ctx, rep.Input, rep.OutputDir, p.cfg.ModelName, p.cfg.Levels)
		if err != nil {
			return err
		}
		rep.Levels = res
		p.log.Info().Int("quantized", rep.Quantized()).Int("skipped", rep.Skipped()).Msg("quantization complete")
		return nil
	})
}

func (p *Pipeline) checksum(rep *Report) error {
	return p.stage(StageChecksum, func() error {
		entries, err := WriteManifest(rep.OutputDir)
		if err != nil {
			return err
		}
		rep.Checksums = entries
		p.log.Info().Int("files", len(entries)).Str("manifest", ManifestName).Msg("checksums written")
		return nil
	})
}

func (p *Pipeline) docs(outDir string, arts []types.Artifact, rep *Report) error {
	return p.stage(StageDocs, func() error {
		idx, err := cards.BuildIndex(p.cfg, p.profile, arts, ManifestName)
		if err != nil {
			return err
		}
		path, err := cards.WriteIndex(outDir, idx)
		if err != nil {
			return err
		}
		p.docWritten(rep, path, "")
		path, err = cards.WriteSharedConfig(outDir, p.cfg, p.profile)
		if err != nil {
			return err
		}
		p.docWritten(rep, path, "")

		byLevel := make(map[string]types.Artifact, len(arts))
		for _, a := range arts {
			byLevel[a.Level] = a
		}
		for _, level := range p.cfg.Levels {
			a, ok := byLevel[level]
			if !ok {
				p.log.Warn().Str("quant", level).Msg("no artifact for level, skipping its card")
				p.events.Publish(Event{Name: EventDocSkipped, Stage: StageDocs, Level: level})
				continue
			}
			v, err := cards.BuildVariant(p.cfg, p.profile, a, ManifestName)
			if err != nil {
				return err
			}
			path, err := cards.WriteVariant(outDir, v)
			if err != nil {
				return err
			}
			p.docWritten(rep, path, level)
		}
		return nil
	})
}

func (p *Pipeline) docWritten(rep *Report, path, level string) {
	rep.Docs = append(rep.Docs, path)
	p.log.Debug().Str("path", path).Msg("document written")
	p.events.Publish(Event{Name: EventDocWritten, Stage: StageDocs, Level: level, Fields: map[string]any{"path": path}})
}

func (p *Pipeline) publish(ctx context.Context, outDir string, rep *Report) error {
	return p.stage(StagePublish, func() error {
		ok, err := p.pub.Publish(ctx, p.cfg.RepoID, outDir, p.cfg.CommitMessage)
		if err != nil {
			return err
		}
		if !ok {
			rep.Declined = true
			p.events.Publish(Event{Name: EventUploadDecline, Stage: StagePublish})
			return nil
		}
		rep.Published = true
		p.events.Publish(Event{Name: EventUploaded, Stage: StagePublish, Fields: map[string]any{"repo": p.cfg.RepoID}})
		return nil
	})
}

func (p *Pipeline) stage(name string, fn func() error) error {
	p.events.Publish(Event{Name: EventStageStarted, Stage: name})
	start := time.Now()
	err := fn()
	d := time.Since(start)
	metrics.ObserveStage(name, err, d)
	p.events.Publish(Event{Name: EventStageFinished, Stage: name, Fields: map[string]any{"ok": err == nil, "took": d.String()}})
	if err != nil {
		p.log.Error().Err(err).Str("stage", name).Str("kind", string(Kind(err))).Msg("stage failed")
	}
	return err
}
