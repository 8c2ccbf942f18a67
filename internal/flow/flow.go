// Package flow routes inbound messages to an intent, replays bounded
// conversation history, and drives the tool-use exchange with the engine.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/planeat/planeat/internal/engine"
	"github.com/planeat/planeat/internal/messaging"
	"github.com/planeat/planeat/internal/models"
	"github.com/planeat/planeat/internal/store"
)

// ConversationFlow is the end-to-end handler for one inbound message:
// route, load history, run the loop, persist the outcome.
type ConversationFlow struct {
	store    store.Store
	sessions *Sessions
	history  *History
	loop     *Loop
	locks    *PhoneLocks
}

// NewConversationFlow wires the flow over its collaborators.
func NewConversationFlow(st store.Store, eng engine.Client, tools ToolExecutor, messenger messaging.Service) *ConversationFlow {
	return &ConversationFlow{
		store:    st,
		sessions: NewSessions(st),
		history:  NewHistory(st),
		loop:     NewLoop(eng, tools, messenger),
		locks:    NewPhoneLocks(),
	}
}

// ProcessMessage handles one normalized inbound message. Processing for the
// same phone number is serialized; different phones run concurrently. The
// trimmed turn list is persisted whether or not the loop completed.
func (f *ConversationFlow) ProcessMessage(ctx context.Context, phone, text, mediaURL string) error {
	unlock := f.locks.Lock(phone)
	defer unlock()

	start := time.Now()

	userCtx, err := store.BuildUserContext(f.store, phone)
	if err != nil {
		slog.Error("ConversationFlow.ProcessMessage: user context lookup failed, continuing without it", "phone", phone, "error", err)
		userCtx = &models.UserContext{Exists: false}
	}

	intent := Route(text, userCtx.Exists)
	system := AgentPrompt(intent)
	sessionID, resumed := f.sessions.GetOrCreate(phone)
	slog.Info("ConversationFlow.ProcessMessage: routed message", "phone", phone, "intent", intent, "resumed", resumed)

	userTurn := BuildUserTurn(phone, text, mediaURL, userCtx)
	turns := append(f.history.Load(phone, HistoryLimit), userTurn)

	finalTurns, state, loopErr := f.loop.Run(ctx, phone, system, turns)
	f.persist(phone, intent, finalTurns)

	// A failed resumed session retries once from scratch before surfacing
	// the error.
	if loopErr != nil && resumed && ctx.Err() == nil {
		slog.Warn("ConversationFlow.ProcessMessage: resumed session failed, retrying with fresh session", "phone", phone, "error", loopErr)
		sessionID = uuid.NewString()
		resumed = false
		finalTurns, state, loopErr = f.loop.Run(ctx, phone, system, []models.Turn{userTurn})
		f.persist(phone, intent, finalTurns)
	}

	if !resumed {
		if err := f.sessions.Save(phone, sessionID); err != nil {
			slog.Error("ConversationFlow.ProcessMessage: failed to save session", "phone", phone, "error", err)
		}
	}

	slog.Info("ConversationFlow.ProcessMessage: finished", "phone", phone, "intent", intent, "state", state, "duration", time.Since(start))
	return loopErr
}

// persist saves the sanitized trimmed history. Failures are logged, not
// surfaced; losing continuity must not turn a delivered reply into an error.
func (f *ConversationFlow) persist(phone string, intent models.Intent, turns []models.Turn) {
	if len(turns) == 0 {
		return
	}
	if err := f.history.Save(phone, intent, turns); err != nil {
		slog.Error("ConversationFlow.persist: failed to save history", "phone", phone, "error", err)
	}
}
