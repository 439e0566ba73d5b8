package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/driftlabs/goalloop"
)

// sessionLoop holds the per-session machinery: budget, ledger, detector, and
// gate instances are created fresh for every session so concurrent sessions
// never share mutable state.
type sessionLoop struct {
	c *Controller
	r *run

	budget   *goalloop.BudgetTracker
	ledger   *goalloop.TaskLedger
	detector *goalloop.StuckDetector
	gate     *goalloop.ReflectionGate

	// seenInsights tracks reflection insights already surfaced, so the stuck
	// detector can tell a genuinely new insight from a repeated one.
	seenInsights map[string]struct{}

	// lastSubtaskDone and lastDuration describe the most recent iteration,
	// carried from the Executing tick into the Reflecting tick.
	lastSubtaskDone bool
	lastDuration    time.Duration
}

func (c *Controller) runSession(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	cfg := r.session.Config
	loop := &sessionLoop{
		c:            c,
		r:            r,
		budget:       goalloop.NewBudgetTracker(cfg, c.deps.Time),
		ledger:       goalloop.NewTaskLedger(),
		detector:     goalloop.NewStuckDetector(cfg.StuckWindow, cfg.StuckSimilarity),
		gate:         goalloop.NewReflectionGate(cfg),
		seenInsights: make(map[string]struct{}),
	}
	loop.ledger.Restore(r.session.Plan)

	for {
		state := loop.state()
		if state.Terminal() {
			return
		}
		if err := ctx.Err(); err != nil {
			loop.finishCancelled(ctx, err)
			return
		}
		// The budget gates starting new work, so the exhausted check applies
		// before planning or dispatching. A Reflecting tick completes the
		// iteration that already consumed its budget slot: its reflection
		// and any completion claim it carries still run.
		if state != goalloop.StateReflecting && loop.budget.Expired() {
			loop.finishTimedOut(ctx)
			return
		}
		switch state {
		case goalloop.StatePlanning:
			loop.tickPlanning(ctx)
		case goalloop.StateExecuting:
			loop.tickExecuting(ctx)
		case goalloop.StateReflecting:
			loop.tickReflecting(ctx)
		}
	}
}

func (l *sessionLoop) state() goalloop.SessionState {
	l.r.mu.RLock()
	defer l.r.mu.RUnlock()
	return l.r.session.State
}

// tickPlanning obtains a plan from the external Planner. Planner
// unavailability is fatal.
func (l *sessionLoop) tickPlanning(ctx context.Context) {
	session := l.r.session
	plan, err := l.c.deps.Planner.Decompose(ctx, session.Goal, session.History)
	if err != nil {
		if ctx.Err() != nil {
			l.finishCancelled(ctx, ctx.Err())
			return
		}
		l.fail(ctx, goalloop.KindPlannerUnavailable, err)
		return
	}
	if len(plan) == 0 {
		l.fail(ctx, goalloop.KindPlannerUnavailable, errors.New("planner returned an empty plan"))
		return
	}
	l.ledger.ReplacePlan(plan)
	l.syncPlan()
	l.transition(ctx, goalloop.StateExecuting, "plan ready")
}

// tickExecuting dispatches the next pending subtask as one iteration. Action
// failures are non-fatal: they are recorded and consumed by the next
// reflection.
func (l *sessionLoop) tickExecuting(ctx context.Context) {
	sub := l.ledger.NextPending()
	if sub == nil {
		// No subtasks remain and no completion has been accepted; ask the
		// planner for a replan.
		l.transition(ctx, goalloop.StatePlanning, "plan exhausted, replanning")
		return
	}

	iteration := l.budget.Used() + 1
	if err := l.ledger.Mark(sub.ID, goalloop.SubtaskInProgress); err != nil {
		l.fail(ctx, goalloop.KindActionFailure, err)
		return
	}
	l.syncPlan()

	l.c.deps.Hooks.FireBeforeIteration(ctx, l.r.session, goalloop.BeforeIterationEvent{
		SessionID: l.r.session.ID,
		Iteration: iteration,
		Subtask:   *sub,
	})

	action := actionForSubtask(*sub)
	start := time.Now()
	obs, err := l.c.deps.Executor.Execute(ctx, action)
	l.lastDuration = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			l.finishCancelled(ctx, ctx.Err())
			return
		}
		// Infrastructure faults from the executor are folded into a failed
		// observation; the loop recovers through reflection and replanning.
		l.c.deps.Hooks.FireError(ctx, l.r.session, goalloop.ErrorEvent{
			SessionID: l.r.session.ID,
			Err:       err,
		})
		obs = goalloop.Observation{Success: false, Content: fmt.Sprintf("action error: %v", err)}
	}

	// A claiming observation turns the iteration's recorded action into the
	// distinguished completion variant, so the history, the rendered prompts,
	// and the stuck window all see the claim rather than the capability call
	// it rode in on. Confidence is clamped before anything downstream reads it.
	recorded := action
	if obs.Completion != nil {
		obs.Completion.Confidence = clamp01(obs.Completion.Confidence)
		recorded = goalloop.NewCompletionAction(*obs.Completion)
	}

	index := l.budget.RecordIteration()
	record := goalloop.IterationRecord{
		Index:       index,
		Action:      recorded,
		Observation: obs,
		Timestamp:   l.c.deps.Time.Now(),
	}
	l.r.mu.Lock()
	l.r.session.Iterations = index
	appendErr := l.r.session.AppendRecord(record)
	l.r.mu.Unlock()
	if appendErr != nil {
		l.fail(ctx, goalloop.KindActionFailure, appendErr)
		return
	}

	l.lastSubtaskDone = obs.Success
	status := goalloop.SubtaskFailed
	if obs.Success {
		status = goalloop.SubtaskDone
	}
	if err := l.ledger.Mark(sub.ID, status); err != nil {
		l.fail(ctx, goalloop.KindActionFailure, err)
		return
	}
	l.syncPlan()

	if obs.Completion != nil {
		l.transition(ctx, goalloop.StateReflecting, "completion claimed")
		return
	}
	if index%l.r.session.Config.ReflectionInterval == 0 {
		l.transition(ctx, goalloop.StateReflecting, "reflection interval reached")
		return
	}

	// No reflection this iteration: account the action in the stuck window
	// and persist the appended record.
	l.detector.Observe(action.Signature(), obs.Success)
	l.updateStuckAdjustment()
	l.fireAfterIteration(ctx)
	l.persist(ctx, goalloop.StateExecuting)
}

// tickReflecting invokes the external Reflector, feeds the result to the
// stuck detector, and routes any completion claim through the gate.
// Reflector unavailability is fatal; a rejected claim is not.
func (l *sessionLoop) tickReflecting(ctx context.Context) {
	session := l.r.session
	cfg := session.Config

	reflection, err := l.c.deps.Reflector.Reflect(ctx, session.History)
	if err != nil {
		if ctx.Err() != nil {
			l.finishCancelled(ctx, ctx.Err())
			return
		}
		l.fail(ctx, goalloop.KindReflectorUnavailable, err)
		return
	}
	reflection.Confidence = clamp01(reflection.Confidence)

	newInsight := false
	for _, insight := range reflection.Insights {
		if _, ok := l.seenInsights[insight]; !ok {
			l.seenInsights[insight] = struct{}{}
			newInsight = true
		}
	}

	l.r.mu.Lock()
	last := &session.History[len(session.History)-1]
	reflCopy := reflection
	confidence := reflection.Confidence
	last.Reflection = &reflCopy
	last.Confidence = &confidence
	l.r.mu.Unlock()

	// The claim is evaluated against the stuck state in force when its
	// action was dispatched; the action itself enters the window afterward.
	stuck := l.detector.IsStuck()

	var claim *goalloop.CompletionSignal
	explicit := false
	switch {
	case last.Observation.Completion != nil:
		claim = last.Observation.Completion
		explicit = true
	case !cfg.RequireExplicitCompletion && reflection.Progress == goalloop.ProgressComplete:
		claim = &goalloop.CompletionSignal{
			Summary:         "goal assessed complete by reflection",
			ResultContent:   last.Observation.Content,
			Confidence:      reflection.Confidence,
			RemainingIssues: reflection.Challenges,
		}
	}

	productive := l.lastSubtaskDone || newInsight
	l.detector.Observe(last.Action.Signature(), productive)
	l.updateStuckAdjustment()

	if claim != nil {
		decision := l.gate.Evaluate(*claim, explicit, stuck)
		if decision.Accepted {
			l.fireAfterIteration(ctx)
			accepted := *claim
			l.finish(ctx, goalloop.StateCompleted, &Result{
				State:      goalloop.StateCompleted,
				Completion: &accepted,
			}, "completion accepted")
			return
		}
		l.c.deps.Hooks.FireCompletionRejected(ctx, session, goalloop.CompletionRejectedEvent{
			SessionID: session.ID,
			Signal:    *claim,
			Decision:  decision,
			Kind:      goalloop.KindCompletionRejected,
		})
		// The rejection reason lands in the history so the next planner and
		// reflector calls see it.
		l.r.mu.Lock()
		last.Reflection.Challenges = append(
			last.Reflection.Challenges,
			"completion rejected: "+decision.Reason,
		)
		l.r.mu.Unlock()
	}

	l.fireAfterIteration(ctx)
	if l.ledger.HasPending() {
		l.transition(ctx, goalloop.StateExecuting, "subtasks remaining")
	} else {
		l.transition(ctx, goalloop.StatePlanning, "plan exhausted, replanning")
	}
}

func (l *sessionLoop) fireAfterIteration(ctx context.Context) {
	l.r.mu.RLock()
	session := l.r.session
	record := session.History[len(session.History)-1]
	l.r.mu.RUnlock()
	l.c.deps.Hooks.FireAfterIteration(ctx, session, goalloop.AfterIterationEvent{
		SessionID: session.ID,
		Iteration: record.Index,
		Record:    record,
		Duration:  l.lastDuration,
	})
}

func (l *sessionLoop) updateStuckAdjustment() {
	adjustment := l.gate.Adjustment(l.detector.IsStuck())
	l.r.mu.Lock()
	l.r.session.StuckAdjustment = adjustment
	l.r.mu.Unlock()
}

func (l *sessionLoop) syncPlan() {
	entries := l.ledger.Entries()
	l.r.mu.Lock()
	l.r.session.Plan = entries
	l.r.mu.Unlock()
}

func actionForSubtask(sub goalloop.SubtaskSpec) goalloop.Action {
	capability := sub.Capability
	params := sub.Params
	if capability == "" {
		capability = "subtask"
		if params == nil {
			params = make(map[string]any, 1)
		}
		params["description"] = sub.Description
	}
	return goalloop.NewCapabilityAction(goalloop.CapabilityCall{
		SubtaskID:  sub.ID,
		Capability: capability,
		Params:     params,
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
