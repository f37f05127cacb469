// Package controller owns the build lifecycle and the filtered view that the
// browser renders.
//
// All Controller methods except Close are meant to be called from one
// goroutine, the UI's. Builds run on their own goroutine and hand the
// finished forest back as a ForestReadyMsg; the controller only installs a
// forest whose generation is current, so results always land in request order.
package controller

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/vanderheijden86/jointscope/pkg/builder"
	"github.com/vanderheijden86/jointscope/pkg/debug"
	"github.com/vanderheijden86/jointscope/pkg/filter"
	"github.com/vanderheijden86/jointscope/pkg/model"
	"github.com/vanderheijden86/jointscope/pkg/tree"
)

// ErrBuildAbandoned is returned by Await when the current build stopped early.
var ErrBuildAbandoned = errors.New("build abandoned")

// ErrClosed is returned by Await after Close.
var ErrClosed = errors.New("controller closed")

// LoadingMsg toggles the loading indicator.
type LoadingMsg struct {
	Loading bool
}

// RefreshMsg tells the view that FilteredItems changed.
type RefreshMsg struct {
	Generation uint64
}

// FilterErrorMsg reports a filter expression that failed to parse.
type FilterErrorMsg struct {
	Err error
}

// ForestReadyMsg carries a finished build from the build goroutine.
type ForestReadyMsg struct {
	Generation uint64
	BuildID    string
	Forest     *tree.Forest
	State      builder.State
	Duration   time.Duration
}

type job struct {
	id     string
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithHost makes builds stop on host shutdown, batch or collection conditions.
func WithHost(h builder.Host) Option {
	return func(c *Controller) { c.builderOpts = append(c.builderOpts, builder.WithHost(h)) }
}

func WithBuilderArgs(a builder.Args) Option {
	return func(c *Controller) { c.builderOpts = append(c.builderOpts, builder.WithArgs(a)) }
}

// WithCheckpointHook is passed through to the builder.
func WithCheckpointHook(fn func(builder.Checkpoint)) Option {
	return func(c *Controller) { c.builderOpts = append(c.builderOpts, builder.WithCheckpointHook(fn)) }
}

func WithFlattenOnFilter(v bool) Option {
	return func(c *Controller) { c.flatten = v }
}

// WithTags seeds the tag predicate set.
func WithTags(items ...filter.FilterItem) Option {
	return func(c *Controller) {
		for _, it := range items {
			c.tags.Add(it.Name, it.Enabled)
		}
	}
}

// WithItemFilter replaces the per-item scoring hook.
func WithItemFilter(fn filter.ItemFilter) Option {
	return func(c *Controller) { c.engine.ItemFilter = fn }
}

func WithLogLevel(l LogLevel) Option {
	return func(c *Controller) { c.logLevel = l }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithQueueSize sets the notification channel capacity.
func WithQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// Controller is the facade the browser talks to.
type Controller struct {
	source      builder.Source
	builder     *builder.Builder
	builderOpts []builder.Option
	engine      filter.Engine
	tags        *filter.TagSet

	// View state, touched only from the UI goroutine.
	forest    *tree.Forest
	filtered  []*tree.Item
	expanded  *roaring.Bitmap
	query     string
	highlight string
	flatten   bool
	lastErr   error
	loading   bool

	settledGen   uint64
	settledState builder.State

	mu         sync.Mutex
	job        *job
	generation uint64
	closed     bool

	queueSize int
	msgCh     chan tea.Msg
	readyCh   chan ForestReadyMsg

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	logLevel LogLevel
	logger   *log.Logger
}

// New creates a controller over source. No build starts until RequestRebuild.
func New(source builder.Source, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:    source,
		tags:      filter.NewTagSet(),
		expanded:  roaring.New(),
		queueSize: 64,
		readyCh:   make(chan ForestReadyMsg, 1),
		ctx:       ctx,
		cancel:    cancel,
		logLevel:  logLevelFromEnv(),
		logger:    defaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.msgCh = make(chan tea.Msg, c.queueSize)
	c.builder = builder.New(source, c.builderOpts...)
	c.tags.OnChange(func() {
		if c.forest != nil {
			_ = c.ApplyFilter()
		}
	})
	return c
}

// Builder exposes the underlying builder.
func (c *Controller) Builder() *builder.Builder { return c.builder }

// Tags returns the tag predicate set. Mutating it re-applies the filter.
func (c *Controller) Tags() *filter.TagSet { return c.tags }

func (c *Controller) Forest() *tree.Forest { return c.forest }

// FilteredItems returns the visible items of the last filter pass.
func (c *Controller) FilteredItems() []*tree.Item { return c.filtered }

func (c *Controller) Loading() bool { return c.loading }

func (c *Controller) QueryText() string { return c.query }

func (c *Controller) HighlightText() string { return c.highlight }

func (c *Controller) FlattenOnFilter() bool { return c.flatten }

// LastFilterError returns the parse error of the last filter pass, if any.
func (c *Controller) LastFilterError() error { return c.lastErr }

// Generation returns the generation of the most recent RequestRebuild.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// RequestRebuild abandons and joins any in-flight build, drops the current
// forest and starts a new build in the background.
func (c *Controller) RequestRebuild() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.job
	c.job = nil
	c.mu.Unlock()

	c.loading = true
	c.send(LoadingMsg{Loading: true})

	if prev != nil {
		c.join(prev)
	}
	c.builder.Reset()

	c.forest = nil
	c.filtered = nil
	c.expanded.Clear()

	c.mu.Lock()
	c.generation++
	ctx, cancel := context.WithCancel(c.ctx)
	j := &job{
		id:     uuid.NewString(),
		gen:    c.generation,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.job = j
	c.mu.Unlock()

	c.logEvent(LogLevelDebug, "build_start", map[string]any{
		"build_id":   j.id,
		"generation": j.gen,
	})
	go c.run(ctx, j)
}

// join asks the build to stop and blocks until its goroutine has returned.
func (c *Controller) join(j *job) {
	start := time.Now()
	c.builder.SetShouldAbandonBuild(true)
	j.cancel()
	<-j.done
	c.logEvent(LogLevelDebug, "build_joined", map[string]any{
		"build_id": j.id,
		"wait_ms":  float64(time.Since(start).Microseconds()) / 1000.0,
	})
}

func (c *Controller) run(ctx context.Context, j *job) {
	defer close(j.done)
	defer j.cancel()

	start := time.Now()
	forest, state := c.builder.Build(ctx)
	d := time.Since(start)

	c.logEvent(LogLevelInfo, "build_done", map[string]any{
		"build_id":    j.id,
		"generation":  j.gen,
		"state":       state.String(),
		"items":       forest.Len(),
		"duration_ms": float64(d.Microseconds()) / 1000.0,
	})
	debug.LogTiming("build "+j.id, d)

	c.deliver(ForestReadyMsg{
		Generation: j.gen,
		BuildID:    j.id,
		Forest:     forest,
		State:      state,
		Duration:   d,
	})
}

// Apply installs a finished build. Stale generations and abandoned builds
// are dropped. It reports whether the forest was installed.
func (c *Controller) Apply(msg ForestReadyMsg) bool {
	if msg.Generation != c.Generation() {
		c.logEvent(LogLevelDebug, "stale_forest_dropped", map[string]any{
			"build_id":   msg.BuildID,
			"generation": msg.Generation,
		})
		return false
	}
	c.settledGen = msg.Generation
	c.settledState = msg.State

	if msg.State != builder.StateCompleted || msg.Forest == nil {
		c.logEvent(LogLevelWarn, "abandoned_forest_dropped", map[string]any{
			"build_id": msg.BuildID,
		})
		c.loading = false
		c.send(LoadingMsg{Loading: false})
		return false
	}

	debug.Section("controller.Apply")
	debug.Dump("build", map[string]any{"id": msg.BuildID, "generation": msg.Generation, "items": msg.Forest.Len()})
	c.forest = msg.Forest
	if err := c.ApplyFilter(); err != nil {
		// The previous filtered list belongs to the old forest.
		c.filterWithoutQuery()
	}
	c.loading = false
	c.send(LoadingMsg{Loading: false})
	return true
}

// Handle routes a message from the controller's channels. It returns true
// when the message belonged to the controller.
func (c *Controller) Handle(msg tea.Msg) bool {
	switch m := msg.(type) {
	case ForestReadyMsg:
		c.Apply(m)
		return true
	case LoadingMsg, RefreshMsg, FilterErrorMsg:
		return true
	}
	return false
}

// ApplyFilter re-runs the filter over the installed forest and seeds the
// expansion set with every item that is not hidden.
func (c *Controller) ApplyFilter() error {
	defer debug.LogEnterExit("controller.ApplyFilter")()

	q, err := filter.Parse(filter.Combine(c.query, c.tags))
	if err != nil {
		c.lastErr = err
		c.send(FilterErrorMsg{Err: err})
		return err
	}
	c.lastErr = nil
	if c.forest == nil {
		c.filtered = nil
		return nil
	}
	c.runFilter(q)
	return nil
}

// filterWithoutQuery shows the forest filtered by the enabled tags alone, or
// unfiltered when the tags do not parse either. lastErr keeps the query error.
func (c *Controller) filterWithoutQuery() {
	if c.forest == nil {
		return
	}
	q, err := filter.Parse(filter.Combine("", c.tags))
	if err != nil {
		q = nil
	}
	c.runFilter(q)
}

func (c *Controller) runFilter(q *filter.Query) {
	c.filtered = c.engine.Filter(filter.Args{Query: q, FlattenOnFilter: c.flatten}, c.forest.Roots())
	c.expanded.Clear()
	for _, it := range c.forest.Linear() {
		if it.Result > tree.Hidden {
			c.expanded.Add(uint32(it.ID))
		}
	}
	c.send(RefreshMsg{Generation: c.settledGen})
}

// SetQueryText sets the free-text filter and re-applies it.
func (c *Controller) SetQueryText(text string) error {
	c.query = text
	if c.forest == nil {
		_, err := filter.Parse(filter.Combine(c.query, c.tags))
		c.lastErr = err
		return err
	}
	return c.ApplyFilter()
}

// SetHighlightText sets the text the view highlights inside rows.
func (c *Controller) SetHighlightText(text string) {
	c.highlight = text
	c.send(RefreshMsg{Generation: c.settledGen})
}

func (c *Controller) SetFlattenOnFilter(v bool) error {
	c.flatten = v
	if c.forest == nil {
		return nil
	}
	return c.ApplyFilter()
}

// SetBuilderArgs changes which passes run from the next rebuild on.
func (c *Controller) SetBuilderArgs(a builder.Args) {
	c.builder.SetArgs(a)
}

func (c *Controller) IsExpanded(it *tree.Item) bool {
	return it != nil && c.expanded.Contains(uint32(it.ID))
}

func (c *Controller) SetExpanded(it *tree.Item, v bool) {
	if it == nil {
		return
	}
	if v {
		c.expanded.Add(uint32(it.ID))
	} else {
		c.expanded.Remove(uint32(it.ID))
	}
}

// ResolveObject returns the live object behind it, or nil if it is gone.
func (c *Controller) ResolveObject(it *tree.Item) model.Object {
	if it == nil {
		return nil
	}
	switch it.Type {
	case tree.TypeManager:
		if it.Manager.IsDestroyed() {
			return nil
		}
	case tree.TypeNode:
		if it.Node.IsDestroyed() {
			return nil
		}
	case tree.TypeProperty:
		if o := it.Field.Owner(); o != nil && o.IsDestroyed() {
			return nil
		}
	}
	return it.Object()
}

// NearestManager returns the manager it belongs to.
func (c *Controller) NearestManager(it *tree.Item) *model.Manager {
	if c.forest == nil {
		return nil
	}
	m := c.forest.NearestManager(it)
	if m == nil || m.IsDestroyed() {
		return nil
	}
	return m
}

// Ready reports whether the latest requested build has been applied.
func (c *Controller) Ready() bool {
	return c.settledGen == c.Generation() && c.settledState == builder.StateCompleted
}

// Await processes controller messages until the latest build has been
// applied. The CLI uses it in place of a bubbletea loop.
func (c *Controller) Await(ctx context.Context) error {
	for {
		if c.ctx.Err() != nil {
			return ErrClosed
		}
		gen := c.Generation()
		if gen == 0 {
			return nil
		}
		if c.settledGen == gen {
			if c.settledState == builder.StateCompleted {
				return nil
			}
			return ErrBuildAbandoned
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return ErrClosed
		case msg := <-c.readyCh:
			c.Apply(msg)
		case <-c.msgCh:
		}
	}
}

// WaitCmd returns a command that blocks for the next controller message.
// Re-issue it after handling each message.
func (c *Controller) WaitCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-c.readyCh:
			return msg
		case msg := <-c.msgCh:
			return msg
		case <-c.ctx.Done():
			return nil
		}
	}
}

// Close abandons and joins any in-flight build. It is safe to call more
// than once and from any goroutine.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		j := c.job
		c.job = nil
		c.mu.Unlock()
		if j != nil {
			c.join(j)
		}
		c.cancel()
		c.logEvent(LogLevelInfo, "controller_closed", nil)
	})
}

// send queues a notification. When the queue is full the oldest message is
// dropped so the newest wins.
func (c *Controller) send(msg tea.Msg) {
	for {
		select {
		case c.msgCh <- msg:
			return
		case <-c.ctx.Done():
			return
		default:
		}
		select {
		case <-c.msgCh:
		default:
		}
	}
}

// deliver hands a forest to the UI goroutine. Only the newest forest is kept;
// an older one waiting in the slot is stale by construction.
func (c *Controller) deliver(msg ForestReadyMsg) {
	for {
		select {
		case c.readyCh <- msg:
			return
		case <-c.ctx.Done():
			return
		default:
		}
		select {
		case old := <-c.readyCh:
			c.logEvent(LogLevelTrace, "forest_superseded", map[string]any{"build_id": old.BuildID})
		default:
		}
	}
}
