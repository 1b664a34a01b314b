package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"ggufpub/internal/catalog"
	"ggufpub/internal/config"
	"ggufpub/internal/executil"
	"ggufpub/internal/hub"
	"ggufpub/internal/logging"
	"ggufpub/internal/metrics"
	"ggufpub/internal/pipeline"
	"ggufpub/internal/registry"
	"ggufpub/pkg/types"
)

// fnAvailable reports whether a tool resolves on PATH; replaced by tests.
var fnAvailable = executil.Available

// Command actions, replaced by tests.
var (
	fnRun        = runAction
	fnQuantize   = quantizeAction
	fnChecksum   = checksumAction
	fnVerify     = verifyAction
	fnDocs       = docsAction
	fnPublish    = publishAction
	fnInspectCmd = inspectAction
	fnProfiles   = profilesAction
)

const metricsJob = "ggufpub"

// session is the per-command state: resolved config, run logger and the
// optional metrics listener.
type session struct {
	o        *Options
	cfg      config.Config
	log      zerolog.Logger
	progress *pipeline.Progress
	server   *metrics.Server
}

func newSession(o *Options) (*session, error) {
	log := logging.New(stderr, o.LogLevel, o.LogFormat).With().Str("run_id", logging.NewRunID()).Logger()
	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}
	log = log.With().Str("model", cfg.ModelName).Logger()
	log.Debug().Str("profile", cfg.Profile).Strs("levels", cfg.Levels).Str("output_dir", cfg.OutputDir).Msg("config resolved")
	s := &session{o: o, cfg: cfg, log: log, progress: pipeline.NewProgress(cfg.Levels)}
	if o.MetricsAddr != "" {
		srv, err := metrics.Listen(o.MetricsAddr, metrics.NewMux(func() any { return s.progress.Status() }), log)
		if err != nil {
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		s.server = srv
	}
	return s, nil
}

// requireTools fails before any stage runs when an external tool is missing.
func (s *session) requireTools(quantizer, hubTool bool) error {
	check := []struct {
		need       bool
		field, bin string
	}{
		{quantizer, "quantize_bin", s.cfg.QuantizeBin},
		{hubTool, "hub_bin", s.cfg.HubBin},
	}
	for _, c := range check {
		if c.need && !fnAvailable(c.bin) {
			return config.ValidationError{Field: c.field, Reason: fmt.Sprintf("%q not found on PATH", c.bin)}
		}
	}
	return nil
}

func (s *session) confirmer() (hub.Confirmer, error) {
	switch {
	case s.o.Yes && s.o.No:
		return nil, usageError{fmt.Errorf("--yes and --no are mutually exclusive")}
	case s.o.Yes:
		return hub.Static(true), nil
	case s.o.No:
		return hub.Static(false), nil
	case s.o.YesEnv:
		return hub.Static(true), nil
	}
	return hub.PromptConfirmer{In: stdin, Out: stdout}, nil
}

func (s *session) publisher() (*hub.Publisher, error) {
	c, err := s.confirmer()
	if err != nil {
		return nil, err
	}
	return &hub.Publisher{
		Client: &hub.Client{
			Bin:      s.cfg.HubBin,
			Runner:   fnRunner,
			Log:      s.log,
			Attempts: s.cfg.UploadAttempts,
			Backoff:  s.cfg.UploadBackoff(),
		},
		Confirm: c,
		Log:     s.log,
		Out:     stdout,
	}, nil
}

func (s *session) pipeline(pub pipeline.Publisher) (*pipeline.Pipeline, error) {
	opts := pipeline.Options{
		Config:      s.cfg,
		Runner:      fnRunner,
		Log:         s.log,
		Events:      pipeline.MultiPublisher{pipeline.LogPublisher{Log: s.log}, s.progress},
		Inspect:     fnInspect,
		Publisher:   pub,
		SkipPublish: pub == nil,
	}
	return pipeline.New(opts)
}

// finish stops the listener, then writes and pushes metrics when configured.
// Failures are logged only; they never change the command's outcome.
func (s *session) finish() {
	if s.server != nil {
		s.server.Shutdown()
	}
	if s.o.MetricsFile != "" {
		if err := metrics.WriteTextfile(s.o.MetricsFile); err != nil {
			s.log.Warn().Err(err).Msg("metrics textfile")
		}
	}
	if s.o.MetricsPushURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(ctx, s.o.MetricsPushURL, metricsJob, s.cfg.ModelName); err != nil {
			s.log.Warn().Err(err).Msg("metrics push")
		}
	}
}

func runAction(ctx context.Context, o *Options) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}
	defer s.finish()
	if err := s.requireTools(true, !o.SkipPublish); err != nil {
		return err
	}
	var pub pipeline.Publisher
	if !o.SkipPublish {
		hp, err := s.publisher()
		if err != nil {
			return err
		}
		pub = hp
	}
	p, err := s.pipeline(pub)
	if err != nil {
		return err
	}
	rep, err := p.Run(ctx)
	if err != nil {
		return err
	}
	reportLevels(rep)
	fmt.Fprintf(stdout, "✓ %s and %d documents written\n", pipeline.ManifestName, len(rep.Docs))
	reportPublish(s.cfg, rep)
	return nil
}

func quantizeAction(ctx context.Context, o *Options) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}
	defer s.finish()
	if err := s.requireTools(true, false); err != nil {
		return err
	}
	p, err := s.pipeline(nil)
	if err != nil {
		return err
	}
	rep, err := p.Quantize(ctx)
	if err != nil {
		return err
	}
	reportLevels(rep)
	return nil
}

func checksumAction(_ context.Context, o *Options) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}
	defer s.finish()
	p, err := s.pipeline(nil)
	if err != nil {
		return err
	}
	rep, err := p.Checksums()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ %s lists %d files in %s\n", pipeline.ManifestName, len(rep.Checksums), rep.OutputDir)
	return nil
}

func verifyAction(_ context.Context, o *Options) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}
	defer s.finish()
	out, err := s.cfg.OutputPath()
	if err != nil {
		return err
	}
	bad, err := pipeline.VerifyManifest(out)
	if err != nil {
		return fmt.Errorf("verify %s: %w", pipeline.ManifestName, err)
	}
	if len(bad) > 0 {
		renderMismatches(stdout, bad)
		return fmt.Errorf("%d files failed verification", len(bad))
	}
	fmt.Fprintf(stdout, "✓ every file in %s matches\n", pipeline.ManifestName)
	return nil
}

func docsAction(ctx context.Context, o *Options) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}
	defer s.finish()
	p, err := s.pipeline(nil)
	if err != nil {
		return err
	}
	rep, err := p.Docs(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "✓ %d documents written to %s\n", len(rep.Docs), rep.OutputDir)
	return nil
}

func publishAction(ctx context.Context, o *Options) error {
	s, err := newSession(o)
	if err != nil {
		return err
	}
	defer s.finish()
	if err := s.requireTools(false, true); err != nil {
		return err
	}
	pub, err := s.publisher()
	if err != nil {
		return err
	}
	p, err := s.pipeline(pub)
	if err != nil {
		return err
	}
	rep, err := p.Publish(ctx)
	if err != nil {
		return err
	}
	reportPublish(s.cfg, rep)
	return nil
}

func inspectAction(_ context.Context, o *Options, files []string) error {
	var arts []types.Artifact
	if len(files) == 0 {
		s, err := newSession(o)
		if err != nil {
			return err
		}
		defer s.finish()
		out, err := s.cfg.OutputPath()
		if err != nil {
			return err
		}
		scanner := &registry.GGUFScanner{ModelName: s.cfg.ModelName}
		if arts, err = scanner.Scan(out); err != nil {
			return err
		}
		if len(arts) == 0 {
			return fmt.Errorf("no GGUF files in %s", out)
		}
	} else {
		for _, f := range files {
			a, err := pipeline.ValidateArtifact(registry.LevelFromFilename("", f), f)
			if err != nil {
				return err
			}
			arts = append(arts, a)
		}
	}
	rows := make([]inspectRow, 0, len(arts))
	failed := 0
	for _, a := range arts {
		h, err := fnInspect(a.Path)
		if err != nil {
			failed++
		}
		rows = append(rows, inspectRow{Artifact: a, Header: h, Err: err})
	}
	renderInspect(stdout, rows)
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be parsed", failed, len(arts))
	}
	return nil
}

func profilesAction(w io.Writer) error {
	renderProfiles(w, catalog.Names())
	return nil
}

func reportLevels(rep pipeline.Report) {
	for _, l := range rep.Levels {
		state := "quantized"
		if l.Skipped {
			state = "exists, skipped"
		}
		fmt.Fprintf(stdout, "✓ %-8s %s (%s)\n", l.Level, l.Artifact.Filename, state)
	}
	fmt.Fprintf(stdout, "✓ %d levels in %s (%d quantized, %d skipped)\n", len(rep.Levels), rep.OutputDir, rep.Quantized(), rep.Skipped())
}

func reportPublish(cfg config.Config, rep pipeline.Report) {
	switch {
	case rep.Published:
		fmt.Fprintf(stdout, "✓ uploaded to https://huggingface.co/%s\n", cfg.RepoID)
	case rep.Declined:
		fmt.Fprintln(stdout, "✓ upload skipped; files left in place")
	}
}
