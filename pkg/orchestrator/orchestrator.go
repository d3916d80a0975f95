// Package orchestrator drives generation requests against a provider.
//
// One orchestrator instance serves one request at a time: submit, then poll
// until the provider reports a terminal status or the iteration cap is hit.
// Retryable failures restart the whole request with exponential backoff;
// a terminal provider failure or a poll timeout never does. Cancellation is
// cooperative and takes effect at the next poll tick or retry wait.
package orchestrator

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	zferrors "github.com/dkrolls/zoneforge/pkg/errors"
	"github.com/dkrolls/zoneforge/pkg/provider"
)

// =============================================================================
// States and results
// =============================================================================

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StatePreparing  State = "preparing"
	StateGenerating State = "generating"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Progress milestones. Poll progress is interpolated between pollStart and
// pollEnd across the iteration budget.
const (
	progressPreparing = 5
	pollStart         = 20
	pollEnd           = 90
	progressDone      = 100
)

// Metadata describes how a result was produced.
type Metadata struct {
	Model          string  `json:"model,omitempty" bson:"model,omitempty"`
	Provider       string  `json:"provider" bson:"provider"`
	ElapsedSeconds float64 `json:"elapsed_seconds" bson:"elapsed_seconds"`
	Prompt         string  `json:"prompt" bson:"prompt"`
	Seed           int64   `json:"seed,omitempty" bson:"seed,omitempty"`
}

// Result is the outcome of one generation request.
type Result struct {
	ID        string   `json:"id" bson:"id"`
	Success   bool     `json:"success" bson:"success"`
	Output    string   `json:"output,omitempty" bson:"output,omitempty"`
	Error     string   `json:"error,omitempty" bson:"error,omitempty"`
	ErrorCode string   `json:"error_code,omitempty" bson:"error_code,omitempty"`
	Attempts  int      `json:"attempts" bson:"attempts"`
	PollCount int      `json:"poll_count" bson:"poll_count"`
	Metadata  Metadata `json:"metadata" bson:"metadata"`
}

// Snapshot is a point-in-time view of the orchestrator.
type Snapshot struct {
	State    State `json:"state" bson:"state"`
	Progress int   `json:"progress" bson:"progress"`
	Pending  int   `json:"pending" bson:"pending"`
	Attempt  int   `json:"attempt" bson:"attempt"`
}

// =============================================================================
// Options
// =============================================================================

// Options configures an Orchestrator.
type Options struct {
	Provider provider.Provider
	Logger   *log.Logger
	Retry    RetryPolicy

	// PollInterval is the wait between poll iterations.
	PollInterval time.Duration
	// MaxPollIterations caps the poll loop per attempt.
	MaxPollIterations int
	// MaxPollWait is a wall-clock ceiling on one attempt's poll loop,
	// a safeguard against a misbehaving clock or sleep implementation.
	MaxPollWait time.Duration

	// Sleep is the wait primitive; tests inject a recording fake.
	Sleep SleepFunc
	// Seed produces batch item seeds. Defaults to math/rand.
	Seed func() int64
	// OnProgress, when set, receives every snapshot change.
	OnProgress func(Snapshot)
}

// ValidateAndSetDefaults checks required fields and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Provider == nil {
		return zferrors.New(zferrors.ErrCodeInvalidInput, "orchestrator needs a provider")
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = DefaultRetryPolicy()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxPollIterations <= 0 {
		o.MaxPollIterations = 120
	}
	if o.MaxPollWait <= 0 {
		o.MaxPollWait = 3 * time.Minute
	}
	if o.Sleep == nil {
		o.Sleep = ContextSleep
	}
	if o.Seed == nil {
		o.Seed = rand.Int63
	}
	return nil
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator runs generation requests one at a time.
type Orchestrator struct {
	opts Options

	mu        sync.Mutex
	state     State
	progress  int
	attempt   int
	pending   int
	active    bool
	cancelled bool

	now func() time.Time
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &Orchestrator{opts: opts, state: StateIdle, now: time.Now}, nil
}

// Status returns the current snapshot.
func (o *Orchestrator) Status() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{State: o.state, Progress: o.progress, Pending: o.pending, Attempt: o.attempt}
}

// Pending reports how many triggers arrived while a request was active.
func (o *Orchestrator) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// Cancel requests cooperative cancellation. The in-flight network call, if
// any, completes; the orchestrator stops at the next poll tick or retry wait.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	o.cancelled = true
	o.mu.Unlock()
}

// acquire claims the single active slot. A trigger while busy increments
// the pending counter instead of starting a second request.
func (o *Orchestrator) acquire() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		o.pending++
		return zferrors.New(zferrors.ErrCodeBusy,
			"a generation request is already active (%d pending)", o.pending)
	}
	o.active = true
	o.cancelled = false
	return nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.active = false
	o.mu.Unlock()
}

func (o *Orchestrator) isCancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

func (o *Orchestrator) setState(state State, progress, attempt int) {
	o.mu.Lock()
	o.state = state
	o.progress = progress
	o.attempt = attempt
	snap := Snapshot{State: o.state, Progress: o.progress, Pending: o.pending, Attempt: o.attempt}
	o.mu.Unlock()
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(snap)
	}
}

// Generate runs one request to completion. While a request is active,
// further calls fail with a BUSY error and bump the pending counter.
func (o *Orchestrator) Generate(ctx context.Context, req *provider.GenerationRequest) (*Result, error) {
	if req == nil {
		return nil, zferrors.New(zferrors.ErrCodeInvalidInput, "generation request is required")
	}
	if err := o.acquire(); err != nil {
		return nil, err
	}
	defer o.release()
	return o.run(ctx, req), nil
}

// run executes the submit/poll cycle with outer retry. It always returns a
// result; failures are recorded on it rather than returned.
func (o *Orchestrator) run(ctx context.Context, req *provider.GenerationRequest) *Result {
	started := o.now()
	result := &Result{
		ID: uuid.NewString(),
		Metadata: Metadata{
			Model:    req.Model,
			Provider: o.opts.Provider.Name(),
			Prompt:   req.Prompt,
			Seed:     req.Seed,
		},
	}

	err := ExecuteWithRetry(ctx, o.opts.Retry, o.opts.Sleep, func(attempt int) error {
		result.Attempts = attempt + 1
		o.setState(StatePreparing, progressPreparing, attempt)

		if o.isCancelled(ctx) {
			return zferrors.New(zferrors.ErrCodeCancelled, "generation cancelled")
		}

		receipt, err := o.opts.Provider.Submit(ctx, req)
		if err != nil {
			o.opts.Logger.Warn("submit failed", "attempt", attempt, "err", err)
			return err
		}
		o.opts.Logger.Debug("job submitted", "id", receipt.ID, "attempt", attempt)

		o.setState(StateGenerating, pollStart, attempt)
		output, err := o.pollUntilDone(ctx, receipt, attempt, result)
		if err != nil {
			return err
		}
		result.Output = output
		return nil
	})

	result.Metadata.ElapsedSeconds = o.now().Sub(started).Seconds()
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		result.ErrorCode = string(zferrors.GetCode(err))
		o.setState(StateFailed, o.Status().Progress, result.Attempts-1)
		return result
	}
	result.Success = true
	o.setState(StateSucceeded, progressDone, result.Attempts-1)
	return result
}

// pollUntilDone polls the receipt until a terminal status, the iteration
// cap, or the wall-clock ceiling. A terminal provider failure and the cap
// both return non-retryable errors so the outer retry does not re-run them.
func (o *Orchestrator) pollUntilDone(ctx context.Context, receipt *provider.SubmitReceipt, attempt int, result *Result) (string, error) {
	deadline := o.now().Add(o.opts.MaxPollWait)

	for i := 0; i < o.opts.MaxPollIterations; i++ {
		if o.isCancelled(ctx) {
			return "", zferrors.New(zferrors.ErrCodeCancelled, "generation cancelled")
		}
		if err := o.opts.Sleep(ctx, o.opts.PollInterval); err != nil {
			return "", zferrors.Wrap(zferrors.ErrCodeCancelled, err, "poll wait interrupted")
		}
		if o.isCancelled(ctx) {
			return "", zferrors.New(zferrors.ErrCodeCancelled, "generation cancelled")
		}
		if o.now().After(deadline) {
			return "", zferrors.New(zferrors.ErrCodePollTimeout,
				"no terminal status after %s", o.opts.MaxPollWait)
		}

		res, err := o.opts.Provider.Poll(ctx, receipt.PollURL)
		result.PollCount++
		if err != nil {
			// Poll transport failures abort the request; retry applies
			// to whole requests, never to individual polls.
			return "", zferrors.Wrap(zferrors.ErrCodeGenerationFailed, err, "poll %s", receipt.ID)
		}

		progress := pollStart + (pollEnd-pollStart)*(i+1)/o.opts.MaxPollIterations
		o.setState(StateGenerating, progress, attempt)

		switch res.Status {
		case provider.StatusSucceeded:
			return res.Output, nil
		case provider.StatusFailed:
			msg := res.Error
			if msg == "" {
				msg = "provider reported failure"
			}
			return "", zferrors.New(zferrors.ErrCodeGenerationFailed, "%s", msg)
		}
	}

	return "", zferrors.New(zferrors.ErrCodePollTimeout,
		"no terminal status after %d polls", o.opts.MaxPollIterations)
}
