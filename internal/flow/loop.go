package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/planeat/planeat/internal/engine"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
)

// LoopState tracks where the tool-use exchange is.
type LoopState string

const (
	StateAwaitingModel  LoopState = "AWAITING_MODEL"
	StateExecutingTools LoopState = "EXECUTING_TOOLS"
	StateDone           LoopState = "DONE"
	StateFailed         LoopState = "FAILED"
)

const (
	// MaxIterations bounds how many engine round-trips one message may take.
	MaxIterations = 10

	// LoopBudget is the wall-clock limit for the whole exchange.
	LoopBudget = 40 * time.Second
)

// BusyMessage is sent once, best effort, when the engine rate-limits us.
const BusyMessage = "El sistema está un poco ocupado en este momento 😅 Por favor intenta de nuevo en unos minutos."

// ToolExecutor dispatches tool invocations requested by the engine. Execute
// never fails; errors come back serialized inside the result payload.
type ToolExecutor interface {
	Execute(ctx context.Context, call models.ToolCall) models.ToolResult
	Schemas() []engine.ToolSchema
}

// Loop drives the repeated call/respond cycle with the engine, executing
// requested tools between rounds.
type Loop struct {
	engine    engine.Client
	tools     ToolExecutor
	messenger messaging.Service

	maxIterations int
	budget        time.Duration
}

// NewLoop creates a loop driver with the default iteration and time budgets.
func NewLoop(eng engine.Client, tools ToolExecutor, messenger messaging.Service) *Loop {
	return &Loop{
		engine:        eng,
		tools:         tools,
		messenger:     messenger,
		maxIterations: MaxIterations,
		budget:        LoopBudget,
	}
}

// Run exchanges turns with the engine until it stops requesting tools or a
// budget runs out. It returns the accumulated turn list in every case so the
// caller can persist partial progress. Tool calls dispatched before the
// budget fires run to completion in the background; their side effects can
// land after Run has already reported failure.
func (l *Loop) Run(ctx context.Context, phone, system string, turns []models.Turn) ([]models.Turn, LoopState, error) {
	timer := time.NewTimer(l.budget)
	defer timer.Stop()

	for iteration := 1; iteration <= l.maxIterations; iteration++ {
		resp, err := l.awaitEngine(ctx, timer, engine.Request{
			System:   system,
			Messages: turns,
			Tools:    l.tools.Schemas(),
		})
		if err != nil {
			if engine.IsRateLimit(err) {
				slog.Warn("Loop.Run: engine rate limited, notifying user", "phone", phone)
				l.notifyBusy(ctx, phone)
			}
			return turns, StateFailed, err
		}

		turns = append(turns, resp.AssistantTurn())
		slog.Debug("Loop.Run: engine responded", "phone", phone, "iteration", iteration, "stopReason", resp.StopReason, "toolCalls", len(resp.ToolCalls))

		switch resp.StopReason {
		case engine.StopToolUse:
			slog.Debug("Loop.Run: state transition", "phone", phone, "state", StateExecutingTools)
			results, err := l.awaitTools(ctx, timer, resp.ToolCalls)
			if err != nil {
				return turns, StateFailed, err
			}
			turns = append(turns, models.Turn{Role: models.RoleUser, Blocks: results})
			slog.Debug("Loop.Run: state transition", "phone", phone, "state", StateAwaitingModel)
		case engine.StopRefusal:
			slog.Info("Loop.Run: engine refused, stopping", "phone", phone)
			return turns, StateDone, nil
		default:
			return turns, StateDone, nil
		}
	}

	return turns, StateFailed, fmt.Errorf("tool loop exceeded %d iterations", l.maxIterations)
}

// awaitEngine races one engine call against the loop budget. On expiry the
// in-flight call is abandoned, not cancelled.
func (l *Loop) awaitEngine(ctx context.Context, timer *time.Timer, req engine.Request) (*engine.Response, error) {
	type outcome struct {
		resp *engine.Response
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		resp, err := l.engine.CreateTurn(ctx, req)
		ch <- outcome{resp, err}
	}()

	select {
	case <-timer.C:
		return nil, fmt.Errorf("conversation budget of %s exceeded", l.budget)
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-ch:
		if o.err != nil {
			return nil, fmt.Errorf("engine call failed: %w", o.err)
		}
		return o.resp, nil
	}
}

// awaitTools executes the requested tool calls, racing the loop budget.
// Dispatch uses a detached context so calls already started keep running
// when the budget fires.
func (l *Loop) awaitTools(ctx context.Context, timer *time.Timer, calls []models.ToolCall) ([]models.ContentBlock, error) {
	toolCtx := context.WithoutCancel(ctx)
	ch := make(chan []models.ContentBlock, 1)
	go func() {
		blocks := make([]models.ContentBlock, 0, len(calls))
		for _, call := range calls {
			slog.Debug("Loop.awaitTools: executing tool", "tool", call.Name, "id", call.ID)
			result := l.tools.Execute(toolCtx, call)
			blocks = append(blocks, models.ContentBlock{
				Type:      models.BlockToolResult,
				ToolUseID: result.ToolCallID,
				Content:   result.Content,
				IsError:   result.IsError,
			})
		}
		ch <- blocks
	}()

	select {
	case <-timer.C:
		return nil, fmt.Errorf("conversation budget of %s exceeded during tool execution", l.budget)
	case blocks := <-ch:
		return blocks, nil
	}
}

// notifyBusy tells the user the system is saturated. Best effort.
func (l *Loop) notifyBusy(ctx context.Context, phone string) {
	if err := l.messenger.SendMessage(context.WithoutCancel(ctx), phone, BusyMessage); err != nil {
		slog.Warn("Loop.notifyBusy: failed to send busy notice", "phone", phone, "error", err)
	}
}
