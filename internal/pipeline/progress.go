package pipeline

import (
	"sync"
	"time"

	"ggufpub/pkg/types"
)

// Level and run states reported by Progress.
const (
	StatePending = "pending"
	StateRunning = "running"
	StateDone    = "done"
	StateSkipped = "skipped"
	StateFailed  = "failed"
)

// Progress folds pipeline events into a RunStatus snapshot.
type Progress struct {
	mu      sync.RWMutex
	start   time.Time
	stage   string
	state   string
	err     string
	order   []string
	levels  map[string]types.LevelStatus
	nowFunc func() time.Time
}

// NewProgress returns a tracker with levels listed as pending.
func NewProgress(levels []string) *Progress {
	p := &Progress{state: StatePending, levels: make(map[string]types.LevelStatus, len(levels)), nowFunc: time.Now}
	p.start = p.nowFunc()
	for _, l := range levels {
		p.order = append(p.order, l)
		p.levels[l] = types.LevelStatus{Level: l, State: StatePending}
	}
	return p
}

func (p *Progress) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e.Name {
	case EventStageStarted:
		p.stage, p.state = e.Stage, StateRunning
	case EventStageFinished:
		if ok, _ := e.Fields["ok"].(bool); ok {
			p.state = StateDone
		} else {
			p.state = StateFailed
		}
	case EventLevelStarted:
		p.setLevel(e.Level, StateRunning, 0)
	case EventLevelSkipped:
		p.setLevel(e.Level, StateSkipped, 0)
	case EventLevelDone:
		n, _ := e.Fields["bytes"].(int64)
		p.setLevel(e.Level, StateDone, n)
	case EventLevelFailed:
		p.setLevel(e.Level, StateFailed, 0)
		if r, ok := e.Fields["reason"].(string); ok {
			p.err = r
		}
	}
}

func (p *Progress) setLevel(level, state string, n int64) {
	if _, ok := p.levels[level]; !ok {
		p.order = append(p.order, level)
	}
	p.levels[level] = types.LevelStatus{Level: level, State: state, Bytes: n}
}

// Status returns a copy of the current state.
func (p *Progress) Status() types.RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := types.RunStatus{
		Stage:   p.stage,
		State:   p.state,
		Error:   p.err,
		Elapsed: p.nowFunc().Sub(p.start).Round(time.Second).String(),
		Levels:  make([]types.LevelStatus, 0, len(p.order)),
	}
	for _, l := range p.order {
		st.Levels = append(st.Levels, p.levels[l])
	}
	return st
}

// MultiPublisher fans every event out to each publisher in order.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
