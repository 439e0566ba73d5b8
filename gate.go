package goalloop

import "fmt"

// stuckReduction is the multiplicative threshold reduction applied while a
// session is stuck: the effective threshold drops by exactly 20% of the base,
// once per contiguous stuck episode, never compounding.
const stuckReduction = 0.2

// ReflectionGate accepts or rejects goal-completion claims against an
// adaptive confidence threshold. The gate itself is stateless; the stuck
// condition is passed in per evaluation so the adjustment stays scoped to the
// session. Identical inputs always yield identical decisions.
type ReflectionGate struct {
	base            float64
	requireExplicit bool
}

// GateDecision is the outcome of evaluating one completion claim.
type GateDecision struct {
	Accepted bool

	// EffectiveThreshold is the threshold the claim was compared against.
	EffectiveThreshold float64

	// Gap is how far the claim's confidence fell below the effective
	// threshold; zero when accepted.
	Gap float64

	// Reason explains a rejection; empty when accepted.
	Reason string
}

// NewReflectionGate creates a gate from the session configuration.
func NewReflectionGate(cfg Config) *ReflectionGate {
	return &ReflectionGate{
		base:            cfg.CompletionConfidenceThreshold,
		requireExplicit: cfg.RequireExplicitCompletion,
	}
}

// Base returns the configured base threshold.
func (g *ReflectionGate) Base() float64 {
	return g.base
}

// EffectiveThreshold returns the threshold in force: the base, reduced by
// 20% multiplicatively (floor 0.0) while the session is stuck.
func (g *ReflectionGate) EffectiveThreshold(stuck bool) float64 {
	threshold := g.base
	if stuck {
		threshold *= 1 - stuckReduction
	}
	if threshold < 0 {
		threshold = 0
	}
	return threshold
}

// Adjustment returns the reduction currently in force, for session status
// reporting. Zero when not stuck.
func (g *ReflectionGate) Adjustment(stuck bool) float64 {
	return g.base - g.EffectiveThreshold(stuck)
}

// Evaluate decides a completion claim. The claim is accepted iff its
// confidence meets the effective threshold and, when explicit completion is
// required, the signal was produced by an explicit completion action rather
// than inferred from reflected progress.
// Confidence values outside [0, 1] are clamped before comparison.
func (g *ReflectionGate) Evaluate(signal CompletionSignal, explicit, stuck bool) GateDecision {
	threshold := g.EffectiveThreshold(stuck)
	if g.requireExplicit && !explicit {
		return GateDecision{
			EffectiveThreshold: threshold,
			Reason:             "completion must be claimed by an explicit completion action",
		}
	}
	confidence := signal.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	if confidence < threshold {
		gap := threshold - confidence
		return GateDecision{
			EffectiveThreshold: threshold,
			Gap:                gap,
			Reason: fmt.Sprintf(
				"confidence %.2f below effective threshold %.2f (gap %.2f)",
				confidence, threshold, gap,
			),
		}
	}
	return GateDecision{Accepted: true, EffectiveThreshold: threshold}
}
