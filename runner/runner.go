package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/logging"
	"github.com/fraudguard-io/fraudguard/memory"
	"github.com/fraudguard-io/fraudguard/session"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// MaxModelCalls limits the number of model calls per run.
	MaxModelCalls int
	// Sessions is the backing session service. It is wrapped with implicit
	// session resolution unless it already is an ImplicitService.
	Sessions core.SessionService
	// Alerts is the compromised-card alert history.
	Alerts core.AlertStore
	// Logger receives structured run logs.
	Logger logging.Logger
}

// Runner coordinates agent execution: resolves the caller's session, creates
// run contexts, streams events, and persists history. Callers never supply a
// session id; each (appName, userID) pair is pinned to one implicitly managed
// session. Public methods are safe for concurrent use.
type Runner struct {
	agent   core.Agent
	appName string

	eventBufferSize int
	maxModelCalls   int

	sessions core.SessionService
	alerts   core.AlertStore
	logger   logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

// New constructs a Runner with optional overrides. The session service is
// always fronted by implicit resolution so callers address sessions by user,
// never by id.
func New(appName string, agent core.Agent, optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		MaxModelCalls:   100,
		Sessions:        session.NewInMemoryService(),
		Alerts:          memory.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	sessions := opts.Sessions
	if _, ok := sessions.(*session.ImplicitService); !ok {
		sessions = session.NewImplicitService(sessions)
	}

	return &Runner{
		agent:           agent,
		appName:         appName,
		eventBufferSize: opts.EventBufferSize,
		maxModelCalls:   opts.MaxModelCalls,
		sessions:        sessions,
		alerts:          opts.Alerts,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Sessions exposes the (implicitly fronted) session service.
func (r *Runner) Sessions() core.SessionService { return r.sessions }

// Run starts an asynchronous scoring run for the user. The user's session is
// resolved implicitly: the first listed session is reused, or a fresh one is
// created on first contact.
func (r *Runner) Run(
	ctx context.Context,
	userID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	sess, err := r.sessions.GetSession(ctx, r.appName, userID, "", nil)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	runID := core.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	agentInfo := core.AgentInfo{Name: r.agent.Name(), Type: "detector"}

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if _, err := r.sessions.AppendEvent(ctx, sess, userEvent); err != nil {
		cancel()
		r.removeRun(runID)
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	runCtx := core.NewRunContext(
		ctx,
		r.appName,
		userID,
		sess.ID,
		runID,
		agentInfo,
		userContent,
		r.maxModelCalls,
		agentEmit,
		sess,
		r.sessions,
		r.alerts,
		r.logger,
	)

	go func() {
		defer func() {
			close(agentEmit)
			r.removeRun(runID)
		}()

		if err := r.agent.Run(runCtx); err != nil {
			select {
			case <-runCtx.Done():
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()

		r.processEvents(runCtx, sess, agentEmit, eventsCh, errorsCh)
	}()

	return runID, eventsCh, errorsCh, nil
}

// Cancel cancels a running run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("run %s not found", runID)
	}

	cancel()

	return nil
}

// Score runs one transaction synchronously and returns the agent's final
// text answer (the augmented record).
func (r *Runner) Score(ctx context.Context, userID, record string) (string, error) {
	content := core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: record}}}

	_, eventsCh, errorsCh, err := r.Run(ctx, userID, content)
	if err != nil {
		return "", err
	}

	var final strings.Builder
	for ev := range eventsCh {
		if ev.ErrorMessage != nil {
			return "", fmt.Errorf("scoring failed: %s", *ev.ErrorMessage)
		}
		if !ev.IsFinalResponse() || ev.Content == nil {
			continue
		}
		final.Reset()
		for _, p := range ev.Content.Parts {
			if tp, ok := p.(core.TextPart); ok {
				final.WriteString(tp.Text)
			}
		}
	}
	if err := <-errorsCh; err != nil {
		return "", err
	}

	return final.String(), nil
}

func (r *Runner) removeRun(runID string) {
	r.mu.Lock()
	delete(r.activeRuns, runID)
	r.mu.Unlock()
}

func (r *Runner) processEvents(
	runCtx *core.RunContext,
	sess *core.Session,
	agentEmit <-chan core.Event,
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-runCtx.Done():
			return
		case ev, ok := <-agentEmit:
			if !ok {
				return
			}

			if card := ev.Actions.AlertCard; card != nil {
				r.logger.Info("runner.event.alert", "card_number", *card, "session_id", sess.ID, "run_id", runCtx.RunID)
			}

			if !ev.IsPartial() {
				stored, err := r.sessions.AppendEvent(runCtx.Context, sess, ev)
				if err != nil {
					select {
					case <-runCtx.Done():
					case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
					}
					return
				}
				ev = stored
			}

			select {
			case <-runCtx.Done():
				return
			case eventsCh <- ev:
				r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sess.ID)
			}
		}
	}
}
