// Package tt provides shared test tooling: configurable mocks for every
// collaborator interface.
package tt

import (
	"context"
	"fmt"
	"sync"

	"github.com/driftlabs/goalloop"
)

// -----------------------------------------------------------------------------
// MockPlanner - implements goalloop.Planner
// -----------------------------------------------------------------------------

// MockPlanner is a configurable mock that implements goalloop.Planner.
// Queue plans and errors in call order; once the queue is exhausted it
// returns a default single-subtask plan so replanning loops keep moving.
type MockPlanner struct {
	mu        sync.Mutex
	plans     []goalloop.Plan
	errors    []error
	callCount int

	// CapturedHistories stores the history passed to each Decompose call.
	CapturedHistories [][]goalloop.IterationRecord
}

// NewMockPlanner creates a new MockPlanner.
func NewMockPlanner() *MockPlanner {
	return &MockPlanner{}
}

// AddPlan queues a plan for the next Decompose call.
func (m *MockPlanner) AddPlan(plan goalloop.Plan) *MockPlanner {
	m.plans = append(m.plans, plan)
	return m
}

// AddError queues an error for the next call.
func (m *MockPlanner) AddError(err error) *MockPlanner {
	for len(m.plans) <= len(m.errors) {
		m.plans = append(m.plans, nil)
	}
	m.errors = append(m.errors, err)
	return m
}

// CallCount returns the number of times Decompose has been called.
func (m *MockPlanner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Decompose implements goalloop.Planner.
func (m *MockPlanner) Decompose(
	_ context.Context,
	_ goalloop.Goal,
	history []goalloop.IterationRecord,
) (goalloop.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.callCount
	m.callCount++
	m.CapturedHistories = append(m.CapturedHistories, history)

	if idx < len(m.errors) && m.errors[idx] != nil {
		return nil, m.errors[idx]
	}
	if idx < len(m.plans) && m.plans[idx] != nil {
		return m.plans[idx], nil
	}
	// Default: a fresh single subtask so the loop can keep iterating.
	return goalloop.Plan{{
		ID:          fmt.Sprintf("replan-%d", idx),
		Description: "continue working toward the goal",
	}}, nil
}

// -----------------------------------------------------------------------------
// MockReflector - implements goalloop.Reflector
// -----------------------------------------------------------------------------

// MockReflector is a configurable mock that implements goalloop.Reflector.
// Once the queue is exhausted it returns an in-progress assessment at 0.5
// confidence.
type MockReflector struct {
	mu        sync.Mutex
	results   []goalloop.ReflectionResult
	errors    []error
	callCount int
}

// NewMockReflector creates a new MockReflector.
func NewMockReflector() *MockReflector {
	return &MockReflector{}
}

// AddResult queues a reflection result for the next Reflect call.
func (m *MockReflector) AddResult(result goalloop.ReflectionResult) *MockReflector {
	m.results = append(m.results, result)
	return m
}

// AddError queues an error for the next call.
func (m *MockReflector) AddError(err error) *MockReflector {
	for len(m.results) <= len(m.errors) {
		m.results = append(m.results, goalloop.ReflectionResult{})
	}
	m.errors = append(m.errors, err)
	return m
}

// CallCount returns the number of times Reflect has been called.
func (m *MockReflector) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reflect implements goalloop.Reflector.
func (m *MockReflector) Reflect(
	_ context.Context,
	_ []goalloop.IterationRecord,
) (goalloop.ReflectionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.callCount
	m.callCount++

	if idx < len(m.errors) && m.errors[idx] != nil {
		return goalloop.ReflectionResult{}, m.errors[idx]
	}
	if idx < len(m.results) && m.results[idx].Progress != "" {
		return m.results[idx], nil
	}
	return goalloop.ReflectionResult{
		Progress:   goalloop.ProgressInProgress,
		Confidence: 0.5,
	}, nil
}

// -----------------------------------------------------------------------------
// MockExecutor - implements goalloop.CapabilityExecutor
// -----------------------------------------------------------------------------

// MockExecutor is a configurable mock that implements
// goalloop.CapabilityExecutor. Once the queue is exhausted it returns a
// successful generic observation.
type MockExecutor struct {
	mu           sync.Mutex
	observations []goalloop.Observation
	errors       []error
	callCount    int

	// CapturedActions stores the action passed to each Execute call.
	CapturedActions []goalloop.Action
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// AddObservation queues an observation for the next Execute call.
func (m *MockExecutor) AddObservation(obs goalloop.Observation) *MockExecutor {
	m.observations = append(m.observations, obs)
	return m
}

// AddSuccess queues a successful observation with the given content.
func (m *MockExecutor) AddSuccess(content string) *MockExecutor {
	return m.AddObservation(goalloop.Observation{Success: true, Content: content})
}

// AddFailure queues a failed observation with the given content.
func (m *MockExecutor) AddFailure(content string) *MockExecutor {
	return m.AddObservation(goalloop.Observation{Success: false, Content: content})
}

// AddCompletion queues a successful observation carrying an explicit
// completion signal.
func (m *MockExecutor) AddCompletion(signal goalloop.CompletionSignal) *MockExecutor {
	return m.AddObservation(goalloop.Observation{
		Success:    true,
		Content:    signal.Summary,
		Completion: &signal,
	})
}

// AddError queues an error for the next call.
func (m *MockExecutor) AddError(err error) *MockExecutor {
	for len(m.observations) <= len(m.errors) {
		m.observations = append(m.observations, goalloop.Observation{})
	}
	m.errors = append(m.errors, err)
	return m
}

// CallCount returns the number of times Execute has been called.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Execute implements goalloop.CapabilityExecutor.
func (m *MockExecutor) Execute(
	ctx context.Context,
	action goalloop.Action,
) (goalloop.Observation, error) {
	if err := ctx.Err(); err != nil {
		return goalloop.Observation{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.callCount
	m.callCount++
	m.CapturedActions = append(m.CapturedActions, action)

	if idx < len(m.errors) && m.errors[idx] != nil {
		return goalloop.Observation{}, m.errors[idx]
	}
	if idx < len(m.observations) {
		obs := m.observations[idx]
		if obs.Content != "" || obs.Success || obs.Completion != nil {
			return obs, nil
		}
	}
	return goalloop.Observation{Success: true, Content: "ok"}, nil
}

// -----------------------------------------------------------------------------
// MockStore - implements goalloop.MemoryStore
// -----------------------------------------------------------------------------

// MockStore is an in-memory goalloop.MemoryStore with failure injection.
type MockStore struct {
	mu       sync.Mutex
	sessions map[string]*goalloop.ExecutionSession

	// FailAfter injects a save failure: saves fail once SaveCount reaches
	// this value. Zero disables injection.
	FailAfter int
	saveErr   error

	saveCount int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]*goalloop.ExecutionSession)}
}

// FailSavesAfter configures Save to return err once n saves have succeeded.
func (m *MockStore) FailSavesAfter(n int, err error) *MockStore {
	m.FailAfter = n
	m.saveErr = err
	return m
}

// SaveCount returns the number of Save calls, including failed ones.
func (m *MockStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveCount
}

// Save implements goalloop.MemoryStore.
func (m *MockStore) Save(_ context.Context, session *goalloop.ExecutionSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCount++
	if m.saveErr != nil && m.saveCount > m.FailAfter {
		return m.saveErr
	}
	m.sessions[session.ID] = session.Clone()
	return nil
}

// Load implements goalloop.MemoryStore.
func (m *MockStore) Load(_ context.Context, sessionID string) (*goalloop.ExecutionSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, goalloop.ErrSessionNotFound
	}
	return session.Clone(), nil
}

var (
	_ goalloop.Planner            = (*MockPlanner)(nil)
	_ goalloop.Reflector          = (*MockReflector)(nil)
	_ goalloop.CapabilityExecutor = (*MockExecutor)(nil)
	_ goalloop.MemoryStore        = (*MockStore)(nil)
)
