package providers

import (
	"fmt"
	"strings"

	"github.com/driftlabs/goalloop"
)

const planInstructions = `You are a planner. Decompose the goal below into an
ordered list of concrete subtasks. Respond with ONLY a JSON object of the
form:

{"subtasks": [{"id": "s1", "description": "...", "capability": "", "params": {}}]}

Rules:
- Each subtask must be a single concrete step.
- "capability" may name a specific capability to invoke, or be empty.
- Use the execution history (if any) to avoid repeating steps that already
  succeeded and to work around steps that failed.`

const reflectionInstructions = `You are a reflector. Assess the execution
history below and respond with ONLY a JSON object of the form:

{"progress": "not_started|in_progress|near_complete|complete",
 "confidence": 0.0,
 "insights": ["..."],
 "challenges": ["..."]}

Rules:
- "confidence" is your confidence, between 0 and 1, that the goal is
  accomplished.
- "insights" are new understandings gained from the recent observations.
- "challenges" are obstacles that remain.`

// historyWindow bounds how many recent iterations are rendered into prompts.
const historyWindow = 10

func buildPlanPrompt(goal goalloop.Goal, history []goalloop.IterationRecord) string {
	var b strings.Builder
	b.WriteString(planInstructions)
	b.WriteString("\n\nGoal: ")
	b.WriteString(goal.Objective)
	for k, v := range goal.Metadata {
		fmt.Fprintf(&b, "\n%s: %s", k, v)
	}
	if len(history) > 0 {
		b.WriteString("\n\nExecution history so far:\n")
		writeHistory(&b, history)
	}
	return b.String()
}

func buildReflectionPrompt(history []goalloop.IterationRecord) string {
	var b strings.Builder
	b.WriteString(reflectionInstructions)
	b.WriteString("\n\nExecution history:\n")
	writeHistory(&b, history)
	return b.String()
}

func writeHistory(b *strings.Builder, history []goalloop.IterationRecord) {
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
		fmt.Fprintf(b, "(%d earlier iterations omitted)\n", start)
	}
	for _, rec := range history[start:] {
		outcome := "FAILED"
		if rec.Observation.Success {
			outcome = "ok"
		}
		fmt.Fprintf(b, "%d. %s -> %s: %s\n",
			rec.Index, describeAction(rec.Action), outcome, rec.Observation.Content)
		if rec.Reflection != nil {
			fmt.Fprintf(b, "   reflection: progress=%s confidence=%.2f\n",
				rec.Reflection.Progress, rec.Reflection.Confidence)
			for _, challenge := range rec.Reflection.Challenges {
				fmt.Fprintf(b, "   challenge: %s\n", challenge)
			}
		}
	}
}

func describeAction(action goalloop.Action) string {
	switch action.Kind {
	case goalloop.ActionCompletion:
		if action.Claim != nil {
			return "completion claim: " + action.Claim.Summary
		}
		return "completion claim"
	default:
		if action.Call != nil {
			return action.Call.Capability
		}
		return "action"
	}
}
