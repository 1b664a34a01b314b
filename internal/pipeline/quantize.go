package pipeline

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gguf "github.com/gpustack/gguf-parser-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ggufpub/internal/common/fsutil"
	"ggufpub/internal/executil"
	"ggufpub/internal/logging"
	"ggufpub/internal/metrics"
	"ggufpub/internal/registry"
	"ggufpub/pkg/types"
)

// HeaderInspector reads GGUF header metadata from a validated artifact.
type HeaderInspector func(path string) (*types.Header, error)

// Quantizer runs the external quantization tool once per level.
type Quantizer struct {
	Bin     string
	Runner  executil.Runner
	Jobs    int
	Log     zerolog.Logger
	Events  EventPublisher
	Inspect HeaderInspector
}

// LevelResult is the outcome for one requested level.
type LevelResult struct {
	Level    string
	Artifact types.Artifact
	Skipped  bool
}

// Run quantizes input into outDir for every level. Levels whose output
// already exists are validated and skipped. The first failure cancels the
// remaining work and is returned; results keep the order of levels.
func (q *Quantizer) Run(ctx context.Context, input, outDir, model string, levels []string) ([]LevelResult, error) {
	jobs := q.Jobs
	if jobs < 1 {
		jobs = 1
	}
	results := make([]LevelResult, len(levels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, level := range levels {
		out := filepath.Join(outDir, registry.ArtifactName(model, level))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := q.one(gctx, input, out, level)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (q *Quantizer) one(ctx context.Context, input, out, level string) (LevelResult, error) {
	log := q.Log.With().Str("quant", level).Logger()
	if fsutil.PathExists(out) {
		art, err := ValidateArtifact(level, out)
		if err != nil {
			_ = os.Remove(out)
			metrics.ObserveQuantize(level, metrics.ResultInvalid, 0)
			q.publish(Event{Name: EventLevelFailed, Level: level, Fields: map[string]any{"reason": err.Error()}})
			return LevelResult{}, err
		}
		log.Info().Str("file", art.Filename).Msg("output exists, skipping")
		metrics.ObserveQuantize(level, metrics.ResultSkipped, 0)
		q.publish(Event{Name: EventLevelSkipped, Level: level})
		q.inspect(log, &art)
		return LevelResult{Level: level, Artifact: art, Skipped: true}, nil
	}

	q.publish(Event{Name: EventLevelStarted, Level: level})
	log.Info().Str("output", out).Msg("quantizing")
	stdout := logging.NewLineWriter(log, zerolog.DebugLevel, "stdout")
	stderr := logging.NewLineWriter(log, zerolog.DebugLevel, "stderr")
	start := time.Now()
	err := q.Runner.Run(ctx, executil.Cmd{
		Path:   q.Bin,
		Args:   []string{input, out, level},
		Stdout: stdout,
		Stderr: stderr,
	})
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		// a partial output would be mistaken for a finished level on rerun
		_ = os.Remove(out)
		metrics.ObserveQuantize(level, metrics.ResultFailed, time.Since(start))
		q.publish(Event{Name: EventLevelFailed, Level: level, Fields: map[string]any{"reason": err.Error()}})
		return LevelResult{}, QuantizeFailedError{Level: level, ExitCode: executil.ExitCode(err), Err: err}
	}
	art, err := ValidateArtifact(level, out)
	if err != nil {
		_ = os.Remove(out)
		metrics.ObserveQuantize(level, metrics.ResultInvalid, time.Since(start))
		q.publish(Event{Name: EventLevelFailed, Level: level, Fields: map[string]any{"reason": err.Error()}})
		return LevelResult{}, err
	}
	d := time.Since(start)
	metrics.ObserveQuantize(level, metrics.ResultOK, d)
	metrics.SetArtifactSize(level, art.Size)
	log.Info().Str("size", fsutil.HumanSize(art.Size)).Dur("took", d).Msg("quantized")
	q.publish(Event{Name: EventLevelDone, Level: level, Fields: map[string]any{"bytes": art.Size}})
	q.inspect(log, &art)
	return LevelResult{Level: level, Artifact: art}, nil
}

func (q *Quantizer) inspect(log zerolog.Logger, art *types.Artifact) {
	if q.Inspect == nil {
		return
	}
	h, err := q.Inspect(art.Path)
	if err != nil {
		log.Warn().Err(err).Msg("could not read GGUF header")
		return
	}
	art.Header = h
}

func (q *Quantizer) publish(e Event) {
	if q.Events != nil {
		q.Events.Publish(e)
	}
}

// ggufMagic is the on-disk GGUF marker ("GGUF" read as little-endian uint32).
var ggufMagic = uint32(gguf.GGUFMagicGGUFLe)

// ValidateArtifact checks that path is a non-empty file starting with the
// GGUF magic and returns it as an Artifact.
func ValidateArtifact(level, path string) (types.Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Artifact{}, InvalidArtifactError{Level: level, Path: path, Reason: err.Error()}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return types.Artifact{}, InvalidArtifactError{Level: level, Path: path, Reason: err.Error()}
	}
	if !fi.Mode().IsRegular() {
		return types.Artifact{}, InvalidArtifactError{Level: level, Path: path, Reason: "not a regular file"}
	}
	if fi.Size() == 0 {
		return types.Artifact{}, InvalidArtifactError{Level: level, Path: path, Reason: "empty file"}
	}
	var head [4]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return types.Artifact{}, InvalidArtifactError{Level: level, Path: path, Reason: "short file: " + err.Error()}
	}
	if binary.LittleEndian.Uint32(head[:]) != ggufMagic {
		return types.Artifact{}, InvalidArtifactError{Level: level, Path: path, Reason: fmt.Sprintf("bad magic %q", head[:])}
	}
	return types.Artifact{
		Level:    level,
		Filename: filepath.Base(path),
		Path:     path,
		Size:     fi.Size(),
	}, nil
}

// InspectHeader parses the GGUF header of path.
func InspectHeader(path string) (*types.Header, error) {
	gf, err := gguf.ParseGGUFFile(path)
	if err != nil {
		return nil, err
	}
	md := gf.Metadata()
	return &types.Header{
		Architecture:  md.Architecture,
		FileType:      md.FileType.String(),
		Parameters:    uint64(md.Parameters),
		BitsPerWeight: float64(md.BitsPerWeight),
	}, nil
}
