// Package main provides an interactive CLI for driving goals through the
// loop and watching every iteration, transition, and gate decision live.
//
// With GOALLOOP_PROVIDER and GOALLOOP_MODEL set (plus the provider's API key
// environment variable), planning and reflection go through a real model.
// Without them, a scripted offline planner and reflector are used so the loop
// mechanics can be explored without credentials.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"

	"github.com/driftlabs/goalloop"
	"github.com/driftlabs/goalloop/controller"
	"github.com/driftlabs/goalloop/hooks"
	"github.com/driftlabs/goalloop/internal/tt"
	"github.com/driftlabs/goalloop/memstore"
	"github.com/driftlabs/goalloop/providers"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr,
			"%sError: %v%s\n",
			colorRed, err, colorReset)
		os.Exit(1)
	}
}

func run() error {
	logDir := ".logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.Create(filepath.Join(logDir, "cli_goalloop.log"))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	registry := hooks.NewRegistry().
		Register(hooks.NewSlogHook(logger)).
		Register(&consoleHook{})

	planner, reflector := buildProviders()
	executor := &echoExecutor{}

	store, err := memstore.NewSQLite(filepath.Join(logDir, "sessions.db"))
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	cfg := goalloop.DefaultConfig()
	cfg.MaxIterations = 15

	ctrl, err := controller.New(cfg, controller.Deps{
		Planner:   planner,
		Reflector: reflector,
		Executor:  executor,
		Store:     store,
		Hooks:     registry,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	rl, err := readline.New(
		colorCyan + colorBold + "Goal (or 'q' to quit): " + colorReset)
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s%sGoal Loop CLI%s\n", colorBold, colorYellow, colorReset)
	fmt.Printf("%s%s%s\n", colorYellow, strings.Repeat("=", 13), colorReset)
	fmt.Printf("%sEnter a goal; the loop plans, executes, reflects, and\n"+
		"decides until it completes or runs out of budget.%s\n\n",
		colorDim, colorReset)

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Printf("\n%sGoodbye!%s\n", colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "q" || input == "Q" {
			fmt.Printf("%sGoodbye!%s\n", colorGreen, colorReset)
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			fmt.Printf("\n%sReceived interrupt, aborting...%s\n",
				colorYellow, colorReset)
			cancel()
		}()

		result, err := ctrl.Run(ctx, goalloop.Goal{Objective: input})
		signal.Stop(sigCh)
		cancel()

		if err != nil {
			fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
			continue
		}
		printResult(result)
		fmt.Printf("\n%s%s%s\n\n", colorDim, strings.Repeat("-", 60), colorReset)
	}
}

// buildProviders returns real model-backed providers when configured,
// scripted offline ones otherwise.
func buildProviders() (goalloop.Planner, goalloop.Reflector) {
	providerName := os.Getenv("GOALLOOP_PROVIDER")
	model := os.Getenv("GOALLOOP_MODEL")
	if providerName != "" && model != "" {
		lc, err := providers.New(providers.Config{
			Provider:  providerName,
			Model:     model,
			ServerURL: os.Getenv("GOALLOOP_SERVER_URL"),
		})
		if err == nil {
			fmt.Printf("%sUsing %s/%s for planning and reflection.%s\n\n",
				colorDim, providerName, model, colorReset)
			return lc, lc
		}
		fmt.Fprintf(os.Stderr,
			"%sWARNING: provider setup failed (%v); using offline mode.%s\n\n",
			colorYellow, err, colorReset)
	} else {
		fmt.Printf("%sGOALLOOP_PROVIDER/GOALLOOP_MODEL not set; "+
			"using scripted offline planner and reflector.%s\n\n",
			colorDim, colorReset)
	}

	planner := tt.NewMockPlanner().AddPlan(goalloop.Plan{
		{ID: "s1", Description: "investigate the goal"},
		{ID: "s2", Description: "carry out the main work"},
		{ID: "s3", Description: "verify the outcome"},
	})
	reflector := tt.NewMockReflector().
		AddResult(goalloop.ReflectionResult{
			Progress:   goalloop.ProgressInProgress,
			Confidence: 0.4,
			Insights:   []string{"initial investigation done"},
		}).
		AddResult(goalloop.ReflectionResult{
			Progress:   goalloop.ProgressNearComplete,
			Confidence: 0.7,
		}).
		AddResult(goalloop.ReflectionResult{
			Progress:   goalloop.ProgressComplete,
			Confidence: 0.9,
		})
	return planner, reflector
}

func printResult(result *controller.Result) {
	switch result.State {
	case goalloop.StateCompleted:
		fmt.Printf("\n%s%sCOMPLETED%s %s\n",
			colorBold, colorGreen, colorReset, result.Completion.Summary)
		if result.Completion.ResultContent != "" {
			fmt.Printf("%s%s%s\n",
				colorGreen, result.Completion.ResultContent, colorReset)
		}
		fmt.Printf("%sconfidence: %.2f%s\n",
			colorDim, result.Completion.Confidence, colorReset)
	default:
		fmt.Printf("\n%s%s%s%s",
			colorBold, colorRed, strings.ToUpper(string(result.State)), colorReset)
		if result.Err != nil {
			fmt.Printf(" %s(%s) %s%s\n",
				colorRed, result.Err.Kind, result.Err.Message, colorReset)
			for _, issue := range result.Err.RemainingIssues {
				fmt.Printf("%s  %s%s\n", colorDim, issue, colorReset)
			}
		} else {
			fmt.Println()
		}
	}
}

// echoExecutor simulates capability execution: every subtask succeeds with a
// synthetic observation. On the last pending subtask it claims completion so
// the gate has something to judge.
type echoExecutor struct {
	calls int
}

func (e *echoExecutor) Execute(
	ctx context.Context,
	action goalloop.Action,
) (goalloop.Observation, error) {
	if err := ctx.Err(); err != nil {
		return goalloop.Observation{}, err
	}
	e.calls++
	desc := ""
	if action.Call != nil {
		if d, ok := action.Call.Params["description"].(string); ok {
			desc = d
		} else {
			desc = action.Call.Capability
		}
	}
	obs := goalloop.Observation{
		Success: true,
		Content: fmt.Sprintf("simulated: %s", desc),
	}
	if e.calls >= 3 {
		obs.Completion = &goalloop.CompletionSignal{
			Summary:       "all simulated subtasks executed",
			ResultContent: "simulation finished",
			Confidence:    0.9,
		}
	}
	return obs, nil
}

// consoleHook prints the loop's progress to stdout as it happens.
type consoleHook struct{}

func (h *consoleHook) OnBeforeIteration(
	_ context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.BeforeIterationEvent,
) {
	fmt.Printf("%s--- Iteration %d ---%s %s\n",
		colorMagenta, event.Iteration, colorReset, event.Subtask.Description)
}

func (h *consoleHook) OnAfterIteration(
	_ context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.AfterIterationEvent,
) {
	status := colorGreen + "ok" + colorReset
	if !event.Record.Observation.Success {
		status = colorRed + "failed" + colorReset
	}
	fmt.Printf("  %s -> %s\n", event.Record.Observation.Content, status)
	if refl := event.Record.Reflection; refl != nil {
		fmt.Printf("  %sreflection: progress=%s confidence=%.2f%s\n",
			colorCyan, refl.Progress, refl.Confidence, colorReset)
	}
}

func (h *consoleHook) OnStateTransition(
	_ context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.StateTransitionEvent,
) {
	fmt.Printf("%s[%s -> %s]%s %s\n",
		colorBlue, event.From, event.To, colorReset, event.Reason)
}

func (h *consoleHook) OnCompletionRejected(
	_ context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.CompletionRejectedEvent,
) {
	fmt.Printf("%s[completion rejected]%s %s (confidence %.2f < %.2f)\n",
		colorYellow, colorReset, event.Decision.Reason,
		event.Signal.Confidence, event.Decision.EffectiveThreshold)
}

func (h *consoleHook) OnError(
	_ context.Context,
	_ *goalloop.ExecutionSession,
	event goalloop.ErrorEvent,
) {
	fmt.Printf("%s[error]%s %v\n", colorRed, colorReset, event.Err)
}
