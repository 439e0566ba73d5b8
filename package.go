// Package goalloop implements an iterative goal-execution controller: a state
// machine that drives an autonomous agent through repeated
// plan -> act -> observe -> reflect -> decide cycles until the goal is
// achieved, a resource budget is exhausted, or the agent is detected looping
// without progress.
//
// The package provides the core data model and the leaf components of the
// loop; the controller package composes them into the running state machine.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/driftlabs/goalloop"
//	    "github.com/driftlabs/goalloop/controller"
//	    "github.com/driftlabs/goalloop/memstore"
//	    "github.com/driftlabs/goalloop/providers"
//	)
//
//	func main() {
//	    // 1. Reasoning providers behind the Planner/Reflector interfaces.
//	    reasoner, err := providers.New(providers.Config{
//	        Provider: "openai",
//	        Model:    "gpt-4o-mini",
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    // 2. Wire the controller. myExecutor implements
//	    //    goalloop.CapabilityExecutor and dispatches capability calls.
//	    ctrl, err := controller.New(goalloop.DefaultConfig(), controller.Deps{
//	        Planner:   reasoner,
//	        Reflector: reasoner,
//	        Executor:  myExecutor,
//	        Store:     memstore.NewInMem(),
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    // 3. Drive a goal to a terminal state.
//	    result, err := ctrl.Run(context.Background(), goalloop.Goal{
//	        Objective: "Summarize the open incidents and file a report",
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//	    if result.State == goalloop.StateCompleted {
//	        fmt.Println(result.Completion.Summary)
//	    }
//	}
//
// # Components
//
//   - [BudgetTracker] enforces the iteration-count and wall-clock limits.
//   - [TaskLedger] holds the current plan and preserves superseded plans for
//     audit.
//   - [StuckDetector] watches a sliding window of action signatures for
//     unproductive repetition.
//   - [ReflectionGate] accepts or rejects completion claims against an
//     adaptive confidence threshold.
//
// External collaborators (the reasoning engine, the capability layer, and
// persistence) are consumed behind the [Planner], [Reflector],
// [CapabilityExecutor], and [MemoryStore] interfaces. The providers package
// ships LLM-backed Planner/Reflector implementations; the memstore package
// ships MemoryStore adapters.
//
// # Sessions
//
// One [ExecutionSession] exists per submitted goal. Sessions advance strictly
// sequentially; distinct sessions run independently and concurrently, sharing
// only the MemoryStore. A session's stuck adjustment is scoped to that
// session, so concurrent sessions never interfere.
//
// # Hooks
//
// The controller fires events (iteration boundaries, state transitions,
// completion rejections, errors) through a hook registry. See hooks.go for
// the hook interfaces and the hooks package for the registry and a slog-based
// logging hook.
package goalloop
