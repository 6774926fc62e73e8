package core

import (
	"context"
	"fmt"

	"github.com/fraudguard-io/fraudguard/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked by the agent. It accumulates EventActions (state
// deltas, alert signals) without directly mutating the underlying session
// until the runner applies them.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	agentInfo      AgentInfo
	eventActions   EventActions

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext
// and unique functionCallID.
func NewToolContext(runCtx *RunContext, functionCallID string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		agentInfo:      runCtx.Agent,
		eventActions:   EventActions{},
		loggerAdapter:  newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the agent name associated with the tool invocation.
func (tc *ToolContext) AgentName() string { return tc.agentInfo.Name }

// GetState retrieves the state associated with the given key.
func (tc *ToolContext) GetState(k string) (any, bool) {
	return tc.runCtx.GetState(k)
}

// SetState records a state mutation both on the underlying run context
// (for immediate visibility) and in the local EventActions delta for emission.
func (tc *ToolContext) SetState(k string, v any) {
	tc.runCtx.SetState(k, v)
	if tc.eventActions.StateDelta == nil {
		tc.eventActions.StateDelta = map[string]any{}
	}

	tc.eventActions.StateDelta[k] = v
}

// Actions returns the event actions accumulated in the tool context.
func (tc *ToolContext) Actions() *EventActions { return &tc.eventActions }

// SignalAlert marks the turn as having raised a compromised-card alert for
// the given card. The card number travels on the emitted event's actions so
// consumers can react without parsing tool payloads.
func (tc *ToolContext) SignalAlert(cardNumber string) {
	tc.eventActions.AlertCard = &cardNumber
	tc.LogInfo("tool.alert.signal", "card_number", cardNumber, "function_call_id", tc.functionCallID)
}

// SearchAlerts performs a recall query against the configured AlertStore.
func (tc *ToolContext) SearchAlerts(cardNumber string, limit int) ([]Alert, error) {
	if tc.runCtx.Alerts == nil {
		return nil, fmt.Errorf("alert store not configured")
	}

	return tc.runCtx.Alerts.Search(cardNumber, limit)
}

// RecordAlert appends an alert to the configured AlertStore.
func (tc *ToolContext) RecordAlert(cardNumber string, alert Alert) error {
	if tc.runCtx.Alerts == nil {
		return fmt.Errorf("alert store not configured")
	}

	return tc.runCtx.Alerts.Record(cardNumber, alert)
}

// GetSessionHistory returns conversation history (filtered) for context.
func (tc *ToolContext) GetSessionHistory() []Event {
	if tc.runCtx.Session == nil {
		return nil
	}

	return tc.runCtx.Session.GetConversationHistory()
}

// RefreshSession reloads the underlying session from the SessionService.
func (tc *ToolContext) RefreshSession() error {
	if tc.runCtx.Sessions == nil {
		return fmt.Errorf("session service not configured")
	}

	s, err := tc.runCtx.Sessions.GetSession(tc.runCtx.Context, tc.runCtx.AppName, tc.runCtx.UserID, tc.runCtx.SessionID, nil)
	if err != nil {
		return err
	}

	tc.runCtx.Session = s

	return nil
}

// Validate performs a structural sanity check of the context.
func (tc *ToolContext) Validate() error {
	if tc.runCtx == nil || tc.runCtx.SessionID == "" || tc.functionCallID == "" {
		return fmt.Errorf("invalid ToolContext")
	}

	return nil
}
