package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Option configures an Engine.
type Option func(*Engine)

// WithStageTimeout bounds every stage's wall time. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.stageTimeout = d
	}
}

// WithMetrics records run and stage metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger overrides the global zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// Engine executes a Graph. It holds no per-run state, so one Engine can
// start any number of unrelated runs.
type Engine struct {
	graph        *Graph
	stageTimeout time.Duration
	metrics      *Metrics
	logger       *zap.Logger
}

// New creates an Engine for g.
func New(g *Graph, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, eris.New("engine: nil graph")
	}
	e := &Engine{graph: g}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Graph returns the topology the engine executes.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// StartRun validates rawURL and starts a run in the background. Input errors
// are returned as *InvalidInputError before any stage is launched. The run
// is cancelled when ctx is.
func (e *Engine) StartRun(ctx context.Context, rawURL string) (*Run, error) {
	input, err := validateInput(rawURL)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		ID:     id,
		URL:    input,
		queue:  newEventQueue(id),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	logger := e.logger
	if logger == nil {
		logger = zap.L()
	}

	s := &scheduler{
		engine:      e,
		run:         r,
		ctx:         runCtx,
		state:       newRunState(input),
		remaining:   make([]int, len(e.graph.stages)),
		done:        make([]bool, len(e.graph.stages)),
		completions: make(chan completion, len(e.graph.stages)),
		log:         logger.With(zap.String("run_id", id), zap.String("url", input)),
	}
	go s.loop()

	return r, nil
}

// CancelRun cancels r. See Run.Cancel.
func (e *Engine) CancelRun(r *Run) {
	if r != nil {
		r.Cancel()
	}
}

func validateInput(rawURL string) (string, error) {
	input := strings.TrimSpace(rawURL)
	if input == "" {
		return "", &InvalidInputError{Input: rawURL, Reason: "url is empty"}
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", &InvalidInputError{Input: rawURL, Reason: "url does not parse"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InvalidInputError{Input: rawURL, Reason: "url scheme must be http or https"}
	}
	if u.Host == "" {
		return "", &InvalidInputError{Input: rawURL, Reason: "url has no host"}
	}
	return input, nil
}

// Run is the handle of one execution. Its event stream has exactly one
// subscriber.
type Run struct {
	ID  string
	URL string

	queue  *eventQueue
	cancel context.CancelFunc
	done   chan struct{}

	// set before done is closed
	err   error
	state Snapshot
}

// Events returns the run's live event stream. The channel is closed after
// RunDone or RunFailed has been delivered.
func (r *Run) Events() <-chan Event {
	return r.queue.out
}

// Cancel asks every running stage to stop. The run still terminates with a
// RunFailed event whose cause wraps ErrRunCancelled.
func (r *Run) Cancel() {
	r.cancel()
}

// Close cancels the run and drops the subscription. Use it when the
// subscriber goes away without draining Events.
func (r *Run) Close() {
	r.cancel()
	r.queue.close()
}

// Done is closed when the scheduler has finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finished and returns its failure, if any. It
// does not consume events.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns everything the run produced. ok is false while the run is
// still executing.
func (r *Run) State() (snap Snapshot, ok bool) {
	select {
	case <-r.done:
		return r.state, true
	default:
		return Snapshot{}, false
	}
}

type completion struct {
	index   int
	update  Update
	err     error
	elapsed time.Duration
}

// scheduler drives one run. Only its loop goroutine touches state,
// remaining and done.
type scheduler struct {
	engine *Engine
	run    *Run
	ctx    context.Context
	state  *RunState

	remaining   []int  // upstreams not yet done, by declaration index
	done        []bool // by declaration index
	finished    int
	inflight    int
	completions chan completion
	failure     *StageExecutionError

	log *zap.Logger
}

func (s *scheduler) loop() {
	start := time.Now()
	g := s.engine.graph
	s.engine.metrics.runStarted()
	s.log.Info("engine: run started", zap.Int("stages", len(g.stages)))

	for i, st := range g.stages {
		s.remaining[i] = len(st.Upstream)
	}
	for _, name := range g.order {
		if i := g.index[name]; s.remaining[i] == 0 {
			s.launch(i)
		}
	}

	for s.inflight > 0 {
		c := <-s.completions
		s.inflight--
		s.complete(c)
	}

	s.finish(start)
}

func (s *scheduler) launch(i int) {
	g := s.engine.graph
	st := g.stages[i]
	snap := s.state.snapshot(g, g.ancestors[i])
	s.inflight++
	s.log.Debug("engine: stage launched", zap.String("stage", st.Name))
	go s.work(i, st, snap)
}

// work runs one stage function and reports its completion. The function
// runs in its own goroutine so that an expired or cancelled stage is
// abandoned even if it ignores its context.
func (s *scheduler) work(i int, st *Stage, snap Snapshot) {
	start := time.Now()

	stageCtx, cancel := s.stageContext()
	defer cancel()

	em := &stageEmitter{queue: s.run.queue, stage: st.Name, metrics: s.engine.metrics}

	results := make(chan completion, 1)
	go func() {
		var c completion
		defer func() {
			if p := recover(); p != nil {
				c.err = fmt.Errorf("%w: %v", ErrStagePanic, p)
			}
			results <- c
		}()
		c.update, c.err = st.Run(stageCtx, snap, em.emit)
	}()

	var c completion
	select {
	case c = <-results:
	case <-stageCtx.Done():
		select {
		case c = <-results:
		default:
			c.err = stageCtx.Err()
		}
	}
	em.seal()

	c.index = i
	c.err = s.classify(stageCtx, c.err)
	c.elapsed = time.Since(start)
	s.completions <- c
}

func (s *scheduler) stageContext() (context.Context, context.CancelFunc) {
	if d := s.engine.stageTimeout; d > 0 {
		return context.WithTimeout(s.ctx, d)
	}
	return context.WithCancel(s.ctx)
}

// classify maps context expiry onto the engine's causes. A stage that
// succeeded keeps its result even if the run was cancelled meanwhile.
func (s *scheduler) classify(stageCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrRunCancelled, err)
	}
	if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrStageTimeout, s.engine.stageTimeout, err)
	}
	return err
}

func (s *scheduler) complete(c completion) {
	g := s.engine.graph
	st := g.stages[c.index]
	log := s.log.With(zap.String("stage", st.Name), zap.Int64("duration_ms", c.elapsed.Milliseconds()))

	if s.failure != nil {
		s.engine.metrics.stageFinished(st.Name, outcomeOf(c.err), c.elapsed)
		log.Debug("engine: discarding completion after failure", zap.Error(c.err))
		return
	}

	if c.err == nil {
		c.err = s.state.merge(st, c.update)
	}
	s.engine.metrics.stageFinished(st.Name, outcomeOf(c.err), c.elapsed)
	if c.err != nil {
		s.fail(st.Name, c.err)
		return
	}

	done := StageDone{Stage: st.Name, Value: c.update.Text}
	if st.Output == FieldDocument {
		doc := *c.update.Document
		done.Document = &doc
		done.Value = doc.Markdown()
	}
	s.run.queue.push(done)
	s.done[c.index] = true
	s.finished++
	log.Info("engine: stage complete")

	if s.ctx.Err() != nil {
		return
	}
	for _, j := range g.dependents[c.index] {
		s.remaining[j]--
		if s.remaining[j] == 0 {
			s.launch(j)
		}
	}
}

// fail records the run's first failure and cancels every other stage.
func (s *scheduler) fail(stage string, err error) {
	se, ok := err.(*StageExecutionError)
	if !ok || se.Stage != stage {
		se = &StageExecutionError{Stage: stage, Err: err}
	}
	s.failure = se
	s.run.cancel()
	s.log.Error("engine: stage failed", zap.String("stage", stage), zap.Error(err))
}

func (s *scheduler) finish(start time.Time) {
	g := s.engine.graph

	// Cancelled between stages: nothing failed, but not everything ran.
	if s.failure == nil && s.finished < len(g.stages) {
		for _, name := range g.order {
			if !s.done[g.index[name]] {
				s.failure = &StageExecutionError{
					Stage: name,
					Err:   fmt.Errorf("%w: %w", ErrRunCancelled, context.Cause(s.ctx)),
				}
				break
			}
		}
	}

	s.run.state = s.state.full()
	log := s.log.With(zap.Int64("duration_ms", time.Since(start).Milliseconds()))

	if s.failure != nil {
		s.run.err = s.failure
		s.engine.metrics.runFinished(outcomeOf(s.failure))
		s.run.queue.push(RunFailed{Stage: s.failure.Stage, Err: s.failure})
		log.Warn("engine: run failed", zap.String("stage", s.failure.Stage), zap.Error(s.failure.Err))
	} else {
		s.engine.metrics.runFinished(outcomeSuccess)
		s.run.queue.push(RunDone{})
		log.Info("engine: run complete")
	}

	s.run.cancel()
	close(s.run.done)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrRunCancelled):
		return outcomeCancelled
	case errors.Is(err, ErrStageTimeout):
		return outcomeTimeout
	default:
		return outcomeFailed
	}
}

// stageEmitter turns a stage's emit calls into Chunk events until sealed.
type stageEmitter struct {
	mu      sync.Mutex
	sealed  bool
	queue   *eventQueue
	stage   string
	metrics *Metrics
}

func (em *stageEmitter) emit(text string) {
	if text == "" {
		return
	}
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.sealed {
		return
	}
	if em.queue.push(Chunk{Stage: em.stage, Text: text}) {
		em.metrics.chunk(em.stage)
	}
}

func (em *stageEmitter) seal() {
	em.mu.Lock()
	em.sealed = true
	em.mu.Unlock()
}
