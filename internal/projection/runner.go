package projection

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProjectFunc is the projection a Runner executes. Project satisfies it once bound to params.
type ProjectFunc func(ctx context.Context, vectors [][]float64) ([]Point, error)

// Result is the outcome of one background run.
type Result struct {
	Generation uint64
	Points     []Point
	Err        error
	Duration   time.Duration
}

// RunnerParams configures a Runner.
type RunnerParams struct {
	Project ProjectFunc
	// Timeout bounds a single run. Zero means no bound beyond cancellation by a newer run.
	Timeout time.Duration
	Logger  *slog.Logger
	// OnStale, if set, observes results discarded because a newer run was submitted.
	OnStale func(Result)
}

// Runner executes projections off the request path. Each Submit supersedes the
// previous one: the older run is cancelled and its result, if it still arrives,
// is discarded rather than delivered.
type Runner struct {
	project ProjectFunc
	timeout time.Duration
	logger  *slog.Logger
	onStale func(Result)

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	closed     bool

	// deliverMu serialises completion callbacks so a stale result can never overwrite a newer one.
	deliverMu sync.Mutex
	wg        sync.WaitGroup
}

// NewRunner creates a Runner. Project must be non-nil.
func NewRunner(params RunnerParams) *Runner {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		project: params.Project,
		timeout: params.Timeout,
		logger:  logger,
		onStale: params.OnStale,
	}
}

// Submit starts a projection of vectors and returns its generation token. done is
// called at most once, only if the run is still the latest when it finishes.
// Submit returns 0 after Close.
func (r *Runner) Submit(vectors [][]float64, done func(Result)) uint64 {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return 0
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.generation++
	gen := r.generation

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), r.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(ctx, cancel, gen, vectors, done)

	return gen
}

func (r *Runner) run(ctx context.Context, cancel context.CancelFunc, gen uint64, vectors [][]float64, done func(Result)) {
	defer r.wg.Done()
	defer cancel()

	start := time.Now()
	points, err := r.project(ctx, vectors)

	res := Result{Generation: gen, Points: points, Err: err, Duration: time.Since(start)}

	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	if !r.isCurrent(gen) {
		r.logger.Debug("discarding stale projection result",
			"generation", gen,
			"duration", res.Duration,
		)

		if r.onStale != nil {
			r.onStale(res)
		}

		return
	}

	if done != nil {
		done(res)
	}
}

func (r *Runner) isCurrent(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return !r.closed && gen == r.generation
}

// Generation returns the token of the most recently submitted run.
func (r *Runner) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.generation
}

// Close cancels any in-flight run and waits for its goroutine to exit.
// No completion callback fires after Close returns.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true

	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}
