package testutil

import (
	"context"

	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/logging"
)

// RunContextOptions tweak the defaults of NewRunContext.
type RunContextOptions struct {
	Sessions core.SessionService
	Alerts   core.AlertStore
	Emit     chan core.Event
	Session  *core.Session
	Content  core.Content
}

// NewRunContext builds a run context wired with no-op collaborators, suitable
// for exercising tools and agents without a full runner.
func NewRunContext(optFns ...func(o *RunContextOptions)) *core.RunContext {
	opts := RunContextOptions{
		Emit:    make(chan core.Event, 16),
		Content: core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: "hello"}}},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Session == nil {
		opts.Session = NewSessionBuilder("fraud", "test-user", "test-session").Build()
	}

	return core.NewRunContext(
		context.Background(),
		opts.Session.AppName,
		opts.Session.UserID,
		opts.Session.ID,
		"test-run",
		core.AgentInfo{Name: "TestAgent", Type: "test"},
		opts.Content,
		0,
		opts.Emit,
		opts.Session,
		opts.Sessions,
		opts.Alerts,
		logging.NoOpLogger{},
	)
}

// NewToolContext builds a tool context over a fresh run context.
func NewToolContext(optFns ...func(o *RunContextOptions)) *core.ToolContext {
	return core.NewToolContext(NewRunContext(optFns...), "fc-test")
}
