// Package controller composes the goalloop components into the iteration
// state machine that drives one goal per session to a terminal state.
//
// The controller is the only component with knowledge of all collaborators.
// Each submitted goal gets its own ExecutionSession and its own goroutine;
// within a session, iterations are strictly sequential. Distinct sessions run
// independently and concurrently, sharing only the MemoryStore.
//
//	ctrl, err := controller.New(goalloop.DefaultConfig(), controller.Deps{
//	    Planner:   planner,
//	    Reflector: reflector,
//	    Executor:  executor,
//	    Store:     memstore.NewInMem(),
//	})
//	id, err := ctrl.Submit(ctx, goalloop.Goal{Objective: "..."})
//	result, err := ctrl.Wait(ctx, id)
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/driftlabs/goalloop"
	"github.com/driftlabs/goalloop/hooks"
)

// Deps are the collaborators the controller is composed from. Planner,
// Reflector, Executor, and Store are required; Hooks and Time are optional.
type Deps struct {
	Planner   goalloop.Planner
	Reflector goalloop.Reflector
	Executor  goalloop.CapabilityExecutor
	Store     goalloop.MemoryStore

	// Hooks receives controller events. Nil disables hooks.
	Hooks *hooks.Registry

	// Time drives budget tracking. Nil uses the system clock.
	Time goalloop.TimeProvider
}

func (d Deps) validate() error {
	if d.Planner == nil {
		return errors.New("controller: Planner is required")
	}
	if d.Reflector == nil {
		return errors.New("controller: Reflector is required")
	}
	if d.Executor == nil {
		return errors.New("controller: Executor is required")
	}
	if d.Store == nil {
		return errors.New("controller: Store is required")
	}
	return nil
}

// Status is the queryable snapshot of a session.
type Status struct {
	State          goalloop.SessionState
	Iteration      int
	LastReflection *goalloop.ReflectionResult
}

// Result is the terminal outcome of a session: a CompletionSignal when the
// session completed, or a structured TerminalError otherwise.
type Result struct {
	State      goalloop.SessionState
	Completion *goalloop.CompletionSignal
	Err        *goalloop.TerminalError
}

// Controller drives goals through the plan -> act -> observe -> reflect ->
// decide cycle. Safe for concurrent use.
type Controller struct {
	cfg  goalloop.Config
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*run
}

// run is the in-memory handle of one live (or finished) session.
type run struct {
	mu      sync.RWMutex
	session *goalloop.ExecutionSession
	cancel  context.CancelFunc
	done    chan struct{}
	result  *Result
}

// New creates a Controller. The configuration is validated once here and
// applies to every session the controller drives.
func New(cfg goalloop.Config, deps Deps) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Time == nil {
		deps.Time = goalloop.NewDefaultTimeProvider()
	}
	return &Controller{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*run),
	}, nil
}

// Submit creates a session for the goal using the controller's configuration,
// persists it in the Planning state, and starts driving it on its own
// goroutine. The returned session id can be used with Status, Wait, and
// Abort.
func (c *Controller) Submit(ctx context.Context, goal goalloop.Goal) (string, error) {
	return c.SubmitWithConfig(ctx, goal, c.cfg)
}

// SubmitWithConfig is Submit with a per-goal configuration override.
func (c *Controller) SubmitWithConfig(
	ctx context.Context,
	goal goalloop.Goal,
	cfg goalloop.Config,
) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	session := &goalloop.ExecutionSession{
		ID:        id,
		Goal:      goal,
		State:     goalloop.StatePlanning,
		StartedAt: c.deps.Time.Now(),
		Config:    cfg,
	}
	if err := c.deps.Store.Save(ctx, session); err != nil {
		return "", fmt.Errorf("persist new session: %w", err)
	}

	// The session outlives the submitting request; its cancellation is tied
	// to the wall-clock deadline and to Abort, not to the caller's context.
	runCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	r := &run{
		session: session,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.mu.Lock()
	c.sessions[id] = r
	c.mu.Unlock()

	go c.runSession(runCtx, r)
	return id, nil
}

// Run submits the goal and blocks until it reaches a terminal state. If the
// caller's context is cancelled first, the session is aborted.
func (c *Controller) Run(ctx context.Context, goal goalloop.Goal) (*Result, error) {
	id, err := c.Submit(ctx, goal)
	if err != nil {
		return nil, err
	}
	result, err := c.Wait(ctx, id)
	if err != nil {
		_ = c.Abort(id)
		return nil, err
	}
	return result, nil
}

// Status returns the queryable state of a session. Sessions that are no
// longer held in memory remain queryable through the MemoryStore; unknown ids
// yield goalloop.ErrSessionNotFound.
func (c *Controller) Status(ctx context.Context, sessionID string) (Status, error) {
	c.mu.RLock()
	r, ok := c.sessions[sessionID]
	c.mu.RUnlock()
	if ok {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return statusOf(r.session), nil
	}

	session, err := c.deps.Store.Load(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	return statusOf(session), nil
}

func statusOf(session *goalloop.ExecutionSession) Status {
	status := Status{
		State:     session.State,
		Iteration: session.Iterations,
	}
	if refl := session.LastReflection(); refl != nil {
		copied := *refl
		status.LastReflection = &copied
	}
	return status
}

// Wait blocks until the session reaches a terminal state and returns its
// result. Waiting is interrupted by the caller's context.
func (c *Controller) Wait(ctx context.Context, sessionID string) (*Result, error) {
	c.mu.RLock()
	r, ok := c.sessions[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil, goalloop.ErrSessionNotFound
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := *r.result
	return &result, nil
}

// Abort requests cancellation of a session. The in-flight external call is
// interrupted; the tick resolves into Aborted with the partial session
// persisted. Aborting a session that already reached a terminal state is a
// no-op.
func (c *Controller) Abort(sessionID string) error {
	c.mu.RLock()
	r, ok := c.sessions[sessionID]
	c.mu.RUnlock()
	if !ok {
		return goalloop.ErrSessionNotFound
	}
	r.cancel()
	return nil
}

// Close aborts every live session and waits for all of them to settle.
func (c *Controller) Close() {
	c.mu.RLock()
	runs := make([]*run, 0, len(c.sessions))
	for _, r := range c.sessions {
		runs = append(runs, r)
	}
	c.mu.RUnlock()
	for _, r := range runs {
		r.cancel()
	}
	for _, r := range runs {
		<-r.done
	}
}
