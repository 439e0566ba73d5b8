package goalloop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ActionKind discriminates the Action variant.
type ActionKind string

const (
	// ActionCapability is an ordinary capability call derived from a
	// subtask.
	ActionCapability ActionKind = "capability"

	// ActionCompletion is an explicit claim that the goal is achieved.
	ActionCompletion ActionKind = "completion"
)

// CapabilityCall identifies one capability dispatch.
type CapabilityCall struct {
	SubtaskID  string         `json:"subtask_id"`
	Capability string         `json:"capability"`
	Params     map[string]any `json:"params,omitempty"`
}

// Action is a tagged variant: exactly one of Call or Claim is set, matching
// Kind. Completion is a distinguished variant rather than a string sentinel
// so the gate logic stays exhaustive.
type Action struct {
	Kind  ActionKind        `json:"kind"`
	Call  *CapabilityCall   `json:"call,omitempty"`
	Claim *CompletionSignal `json:"claim,omitempty"`
}

// NewCapabilityAction wraps a capability call as an Action.
func NewCapabilityAction(call CapabilityCall) Action {
	return Action{Kind: ActionCapability, Call: &call}
}

// NewCompletionAction wraps a completion signal as an Action.
func NewCompletionAction(sig CompletionSignal) Action {
	return Action{Kind: ActionCompletion, Claim: &sig}
}

func (a Action) clone() Action {
	out := a
	if a.Call != nil {
		call := *a.Call
		call.Params = cloneAnyMap(a.Call.Params)
		out.Call = &call
	}
	out.Claim = cloneSignal(a.Claim)
	return out
}

// Observation is the result of executing one action. Ordinary failures are
// encoded in Success=false, never raised as errors.
type Observation struct {
	Success bool   `json:"success"`
	Content string `json:"content"`

	// Completion is set when the capability layer claims the goal is
	// achieved. Its presence makes the claim explicit; the controller routes
	// it through the ReflectionGate.
	Completion *CompletionSignal `json:"completion,omitempty"`
}

func (o Observation) clone() Observation {
	out := o
	out.Completion = cloneSignal(o.Completion)
	return out
}

// Signature is a normalized fingerprint of an action: the kind, the
// capability, and the key parameters in sorted order. The subtask id is
// deliberately excluded so a replanned copy of the same work produces the
// same signature.
type Signature struct {
	// Key is the canonical text form, used for near-duplicate comparison.
	Key string

	// Sum is the xxhash of Key, used for cheap equality.
	Sum uint64
}

// Signature computes the action's normalized signature.
func (a Action) Signature() Signature {
	var sb strings.Builder
	sb.WriteString(string(a.Kind))
	switch a.Kind {
	case ActionCapability:
		if a.Call != nil {
			sb.WriteByte(' ')
			sb.WriteString(a.Call.Capability)
			keys := make([]string, 0, len(a.Call.Params))
			for k := range a.Call.Params {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&sb, " %s=%v", k, a.Call.Params[k])
			}
		}
	case ActionCompletion:
		if a.Claim != nil {
			sb.WriteByte(' ')
			sb.WriteString(a.Claim.Summary)
		}
	}
	key := sb.String()
	return Signature{Key: key, Sum: xxhash.Sum64String(key)}
}
