package agent

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/model"
	"github.com/fraudguard-io/fraudguard/tool"
)

// boolPtr creates a pointer to a boolean value for optional event fields.
func boolPtr(b bool) *bool { return &b }

// DetectorOptions configures a Detector instance.
//
// Use functional options with NewDetector to override defaults.
type DetectorOptions struct {
	Name            string
	Description     string
	Instruction     Instruction
	EnableStreaming bool
	ToolTimeout     time.Duration
	MaxToolRounds   int
	Tools           map[string]tool.Tool
}

// Detector is the fraud scoring agent. For each transaction record it drives
// a model turn loop: the model scores the transaction, requests tool calls
// (publishing augmented records and alerts, searching alert history), receives
// the tool results and finally answers with the augmented record.
//
// Detector implements core.Agent. It holds no per-run state; a single
// instance can serve concurrent runs.
type Detector struct {
	name          string
	description   string
	llm           model.Model
	instruction   Instruction
	tools         map[string]tool.Tool
	stream        bool
	toolTimeout   time.Duration
	maxToolRounds int
}

// NewDetector creates a fraud detector backed by the given model.
//
// Defaults:
//   - 15-second timeout per tool call
//   - at most 8 model turns per run (tool call rounds)
//   - streaming disabled (scoring output is consumed whole)
func NewDetector(llm model.Model, optFns ...func(o *DetectorOptions)) *Detector {
	opts := DetectorOptions{
		Name:          "FraudDetector",
		Description:   "Determines risk of fraud in transactions.",
		Instruction:   NewInstructionFromText("You are an expert agent at detecting fraud in financial transactions."),
		ToolTimeout:   15 * time.Second,
		MaxToolRounds: 8,
		Tools:         make(map[string]tool.Tool),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Detector{
		name:          opts.Name,
		description:   opts.Description,
		llm:           llm,
		instruction:   opts.Instruction,
		tools:         opts.Tools,
		stream:        opts.EnableStreaming,
		toolTimeout:   opts.ToolTimeout,
		maxToolRounds: opts.MaxToolRounds,
	}
}

// Name returns the agent identifier used as the author of emitted events.
func (d *Detector) Name() string { return d.name }

// Description returns the short description exposed on deployment.
func (d *Detector) Description() string { return d.description }

// RegisterTool adds a tool to the detector's capability set.
func (d *Detector) RegisterTool(t tool.Tool) { d.tools[t.Name()] = t }

// RegisterTools adds multiple tools to the detector's capability set.
func (d *Detector) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		d.RegisterTool(t)
	}
}

// HasTool checks if a tool is registered with the detector.
func (d *Detector) HasTool(name string) bool {
	_, exists := d.tools[name]
	return exists
}

// ListTools returns the names of all registered tools.
func (d *Detector) ListTools() []string {
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	return names
}

// Run implements core.Agent. It performs model turns until the model answers
// without requesting tool calls, executing requested tools between turns and
// emitting every assistant and tool event through the run context.
func (d *Detector) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", d.name, "run", runCtx.RunID)

	instructions, err := d.instruction.Resolve(runCtx)
	if err != nil {
		return fmt.Errorf("resolving instructions: %w", err)
	}

	contents := d.baseContents(runCtx)

	for round := 0; ; round++ {
		if d.maxToolRounds > 0 && round >= d.maxToolRounds {
			err := fmt.Errorf("exceeded max tool rounds: %d", d.maxToolRounds)
			d.emitError(runCtx, err)
			return err
		}

		if err := runCtx.Limiter.Increment(); err != nil {
			d.emitError(runCtx, err)
			return err
		}

		req := model.Request{
			Instructions: instructions,
			Contents:     contents,
			Tools:        d.toolDefinitions(),
			Stream:       d.stream,
		}

		final, err := d.modelTurn(runCtx, req)
		if err != nil {
			d.emitError(runCtx, err)
			return err
		}
		if final == nil {
			// Channel closed without a final response (e.g. cancellation).
			return runCtx.Err()
		}

		fnCalls := final.GetFunctionCalls()
		if len(fnCalls) == 0 {
			runCtx.LogDebug("agent.run.complete", "agent", d.name, "run", runCtx.RunID, "model_calls", runCtx.Limiter.Count())
			return nil
		}

		contents = append(contents, *final.Content)
		for _, fc := range fnCalls {
			respEv, err := d.executeCall(runCtx, fc)
			if err != nil {
				return err
			}
			contents = append(contents, *respEv.Content)
		}
	}
}

// baseContents assembles the conversation the model sees: the session history
// when present, otherwise just the current user content.
func (d *Detector) baseContents(runCtx *core.RunContext) []core.Content {
	var contents []core.Content
	if runCtx.Session != nil {
		for _, ev := range runCtx.Session.GetConversationHistory() {
			if ev.Content != nil {
				contents = append(contents, *ev.Content)
			}
		}
	}
	if len(contents) == 0 {
		contents = append(contents, runCtx.UserContent)
	}
	return contents
}

// toolDefinitions declares the registered tools to the model.
func (d *Detector) toolDefinitions() []model.ToolDefinition {
	if len(d.tools) == 0 {
		return nil
	}
	defs := make([]model.ToolDefinition, 0, len(d.tools))
	for _, t := range d.tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// modelTurn runs one Generate call, forwarding partial chunks and returning
// the final event (already emitted) or an error.
func (d *Detector) modelTurn(runCtx *core.RunContext, req model.Request) (*core.Event, error) {
	respCh, errCh := d.llm.Generate(runCtx.Context, req)

	var final *core.Event

	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				// The adapters may buffer an error and close both channels.
				select {
				case err, ok := <-errCh:
					if ok && err != nil {
						return nil, fmt.Errorf("model generation failed: %w", err)
					}
				default:
				}
				return final, nil
			}

			ev := core.NewEvent(runCtx.RunID, d.name)
			ev.Content = &resp.Content
			ev.Partial = boolPtr(resp.Partial)

			if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
				ev.TurnComplete = boolPtr(true)
			}

			if err := runCtx.EmitEvent(ev); err != nil {
				return nil, err
			}

			if !resp.Partial {
				final = &ev
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil // closed; stop selecting on it
				continue
			}
			return nil, fmt.Errorf("model generation failed: %w", err)
		case <-runCtx.Done():
			return nil, runCtx.Err()
		}
	}
}

// executeCall runs one requested tool call with the configured timeout and
// emits the function response event carrying the tool's accumulated actions.
func (d *Detector) executeCall(runCtx *core.RunContext, fc core.FunctionCall) (*core.Event, error) {
	toolCtx := core.NewToolContext(runCtx, fc.ID)

	start := time.Now()
	result, err := d.callWithTimeout(runCtx, toolCtx, fc)
	runCtx.LogInfo(
		"agent.function.executed",
		"agent", d.name,
		"function", fc.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	respEv := core.NewFunctionResponseEvent(d.name, fc.ID, fc.Name, result, err)
	respEv.InvocationID = runCtx.RunID
	respEv.Actions = *toolCtx.Actions()

	if err := runCtx.EmitEvent(respEv); err != nil {
		return nil, err
	}
	return &respEv, nil
}

type callResult struct {
	result any
	err    error
}

// callWithTimeout invokes the named tool, recovering panics and bounding the
// call by the configured timeout.
func (d *Detector) callWithTimeout(runCtx *core.RunContext, toolCtx *core.ToolContext, fc core.FunctionCall) (any, error) {
	done := make(chan callResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				runCtx.LogError("agent.function.panic", "agent", d.name, "function", fc.Name, "recover", r, "stack", string(debug.Stack()))
				done <- callResult{err: fmt.Errorf("tool %s panicked", fc.Name)}
			}
		}()
		result, err := d.executeTool(toolCtx, fc.Name, fc.Arguments)
		done <- callResult{result: result, err: err}
	}()

	var timeout <-chan time.Time
	if d.toolTimeout > 0 {
		timer := time.NewTimer(d.toolTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case res := <-done:
		return res.result, res.err
	case <-timeout:
		return nil, fmt.Errorf("tool %s timed out after %s", fc.Name, d.toolTimeout)
	case <-runCtx.Done():
		return nil, runCtx.Err()
	}
}

// executeTool deserializes JSON arguments and invokes the named tool,
// returning its result or an error if the tool is unknown.
func (d *Detector) executeTool(toolCtx *core.ToolContext, toolName, args string) (any, error) {
	impl, exists := d.tools[toolName]
	if !exists {
		return nil, fmt.Errorf("tool %s not found", toolName)
	}

	argMap := make(map[string]any)
	if args != "" {
		if err := json.Unmarshal([]byte(args), &argMap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return impl.Call(toolCtx, argMap)
}

// emitError converts an internal error to a system event so callers draining
// the event channel observe the failure.
func (d *Detector) emitError(runCtx *core.RunContext, err error) {
	ev := core.NewEvent(runCtx.RunID, "system")
	msg := err.Error()
	ev.ErrorMessage = &msg
	_ = runCtx.EmitEvent(ev)
}
