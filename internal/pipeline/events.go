package pipeline

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event names published by the pipeline.
const (
	EventStageStarted  = "stage_started"
	EventStageFinished = "stage_finished"
	EventLevelSkipped  = "level_skipped"
	EventLevelStarted  = "level_started"
	EventLevelDone     = "level_done"
	EventLevelFailed   = "level_failed"
	EventDocWritten    = "doc_written"
	EventDocSkipped    = "doc_skipped"
	EventUploadDecline = "upload_declined"
	EventUploaded      = "uploaded"
)

// Event represents a pipeline progress event.
// Minimal and stable: name + level and optional fields via key/values.
type Event struct {
	Name   string
	Stage  string
	Level  string
	Fields map[string]any
}

// EventPublisher receives events from the pipeline. Implementations should be
// lightweight and non-blocking; Publish must not panic. Publish may be called
// from several goroutines when quantizing in parallel.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// LogPublisher writes every event to a zerolog logger at debug level.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Debug().Str("event", e.Name)
	if e.Stage != "" {
		ev = ev.Str("stage", e.Stage)
	}
	if e.Level != "" {
		ev = ev.Str("quant", e.Level)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("pipeline event")
}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Count returns how many events named name were published.
func (p *MemoryPublisher) Count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Name == name {
			n++
		}
	}
	return n
}
