// Package builder turns the live object registry into a tree.Forest.
//
// A build runs three collector passes (managers, nodes, properties), each
// gated by Args. Cancellation is cooperative: every pass polls a Token at each
// manager and node boundary and returns early when it fires. The partially
// filled forest of an abandoned build is meant to be thrown away.
package builder

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vanderheijden86/jointscope/pkg/debug"
	"github.com/vanderheijden86/jointscope/pkg/metrics"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// State is the builder's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateBuilding
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Args selects which collector passes run.
type Args struct {
	ShowManagers   bool
	ShowNodes      bool
	ShowProperties bool
}

// DefaultArgs enables every pass.
func DefaultArgs() Args {
	return Args{ShowManagers: true, ShowNodes: true, ShowProperties: true}
}

// Source supplies manager handles. *model.Registry satisfies it.
type Source interface {
	Refs() []model.ManagerRef
}

// Pass names a collector pass.
type Pass string

const (
	PassManagers   Pass = "managers"
	PassNodes      Pass = "nodes"
	PassProperties Pass = "properties"
)

// Checkpoint describes a cancellation checkpoint about to be evaluated.
type Checkpoint struct {
	Pass Pass
	Name string
}

// Option configures a Builder.
type Option func(*Builder)

// WithHost sets the host whose conditions also abandon a build.
func WithHost(h Host) Option {
	return func(b *Builder) {
		b.host = h
	}
}

// WithArgs sets the initial pass selection.
func WithArgs(a Args) Option {
	return func(b *Builder) {
		b.args = a
	}
}

// WithCheckpointHook installs fn to run right before each checkpoint is
// evaluated. It runs on the build goroutine.
func WithCheckpointHook(fn func(Checkpoint)) Option {
	return func(b *Builder) {
		b.onCheckpoint = fn
	}
}

// Builder runs collector passes over a Source. One Builder runs at most one
// build at a time.
type Builder struct {
	source       Source
	host         Host
	onCheckpoint func(Checkpoint)

	mu   sync.RWMutex
	args Args

	abandon  atomic.Bool
	building atomic.Bool
	state    atomic.Int32
}

func New(source Source, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		host:   noHost{},
		args:   DefaultArgs(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Args() Args {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.args
}

// SetArgs changes the pass selection for the next build.
func (b *Builder) SetArgs(a Args) {
	b.mu.Lock()
	b.args = a
	b.mu.Unlock()
}

// SetShouldAbandonBuild sets or clears the explicit abandon flag. It never blocks.
func (b *Builder) SetShouldAbandonBuild(v bool) {
	b.abandon.Store(v)
}

// ShouldAbandonBuild reports the explicit flag or any host condition.
func (b *Builder) ShouldAbandonBuild() bool {
	return b.abandon.Load() || hostWantsStop(b.host)
}

func (b *Builder) IsBuilding() bool {
	return b.building.Load()
}

func (b *Builder) State() State {
	return State(b.state.Load())
}

// Reset clears the abandon flag and returns a finished builder to Idle.
// It does nothing while a build is running.
func (b *Builder) Reset() {
	if b.building.Load() {
		return
	}
	b.abandon.Store(false)
	b.state.Store(int32(StateIdle))
}

// Token returns a cancellation token bound to ctx and this builder.
func (b *Builder) Token(ctx context.Context) Token {
	return Token{ctx: ctx, abandon: &b.abandon, host: b.host}
}

// Build runs the enabled passes and returns the forest with the terminal
// state. An abandoned build's forest is partial. Calling Build while another
// build is running returns a nil forest and StateAbandoned.
func (b *Builder) Build(ctx context.Context) (*tree.Forest, State) {
	if !b.building.CompareAndSwap(false, true) {
		debug.Log("builder: refused overlapping build")
		return nil, StateAbandoned
	}
	defer b.building.Store(false)
	defer metrics.Timer(metrics.BuildDuration)()

	b.state.Store(int32(StateBuilding))
	debug.ResetCheckpoints()
	tok := b.Token(ctx)
	args := b.Args()
	out := tree.NewOutput(tree.NewForest())
	refs := b.source.Refs()

	c := &collector{tok: tok, out: out, hook: b.onCheckpoint}
	ok := !tok.Cancelled()
	if ok && args.ShowManagers {
		ok = c.managers(refs)
	}
	if ok && args.ShowNodes {
		ok = c.nodes(refs)
	}
	if ok && args.ShowProperties {
		ok = c.properties(refs)
	}

	final := StateCompleted
	if !ok || tok.Cancelled() {
		final = StateAbandoned
		debug.Log("builder: abandoned with %d items", out.Forest().Len())
	}
	b.state.Store(int32(final))
	return out.Forest(), final
}
