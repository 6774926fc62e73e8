package session

import (
	"context"
	"errors"
	"testing"

	"github.com/fraudguard-io/fraudguard/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.SessionService = (*InMemoryService)(nil)
	_ core.SessionService = (*ImplicitService)(nil)
)

func TestInMemoryService_CreateAndGet(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "fraud", "alice", map[string]any{"k": "v"}, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated session id")
	}

	got, err := svc.GetSession(ctx, "fraud", "alice", created.ID, nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AppName != "fraud" || got.UserID != "alice" || got.ID != created.ID {
		t.Fatalf("unexpected identity: %s/%s/%s", got.AppName, got.UserID, got.ID)
	}
	if v, ok := got.GetState("k"); !ok || v != "v" {
		t.Fatalf("expected initial state to survive, got %#v", got.State)
	}

	// mutation safety (returned session is a clone)
	got.SetState("k", "changed")
	again, _ := svc.GetSession(ctx, "fraud", "alice", created.ID, nil)
	if v, _ := again.GetState("k"); v != "v" {
		t.Fatalf("expected clone isolation, got %#v", v)
	}
}

func TestInMemoryService_CreateDuplicateID(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, "fraud", "alice", nil, "s1"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.CreateSession(ctx, "fraud", "alice", nil, "s1"); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
}

func TestInMemoryService_GetNotFound(t *testing.T) {
	svc := NewInMemoryService()

	_, err := svc.GetSession(context.Background(), "fraud", "alice", "missing", nil)
	if !errors.Is(err, core.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestInMemoryService_EmptyScopeRejected(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, "", "alice", nil, ""); err == nil {
		t.Fatalf("expected empty app name to fail")
	}
	if _, err := svc.ListSessions(ctx, "fraud", ""); err == nil {
		t.Fatalf("expected empty user id to fail")
	}
}

func TestInMemoryService_ListCreationOrder(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		if _, err := svc.CreateSession(ctx, "fraud", "bob", nil, id); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
	}

	summaries, err := svc.ListSessions(ctx, "fraud", "bob")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	for i, want := range []string{"s1", "s2", "s3"} {
		if summaries[i].ID != want {
			t.Fatalf("expected %s at position %d, got %s", want, i, summaries[i].ID)
		}
	}
}

func TestInMemoryService_DeleteLeavesOthers(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		if _, err := svc.CreateSession(ctx, "fraud", "bob", nil, id); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	if err := svc.DeleteSession(ctx, "fraud", "bob", "s1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	summaries, _ := svc.ListSessions(ctx, "fraud", "bob")
	if len(summaries) != 1 || summaries[0].ID != "s2" {
		t.Fatalf("expected only s2 to remain, got %#v", summaries)
	}

	if err := svc.DeleteSession(ctx, "fraud", "bob", "s1"); !errors.Is(err, core.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestInMemoryService_AppendEventNormalizes(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	sess, err := svc.CreateSession(ctx, "fraud", "alice", nil, "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	ev := core.Event{Author: "user", Content: &core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: "hello"}}}}
	stored, err := svc.AppendEvent(ctx, sess, ev)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if stored.ID == "" || stored.Timestamp.IsZero() {
		t.Fatalf("expected normalized id and timestamp, got %#v", stored)
	}

	// visible in the caller's snapshot and on subsequent fetch
	if len(sess.GetEvents()) != 1 {
		t.Fatalf("expected event mirrored onto snapshot")
	}
	got, _ := svc.GetSession(ctx, "fraud", "alice", sess.ID, nil)
	if len(got.GetEvents()) != 1 || got.GetEvents()[0].ID != stored.ID {
		t.Fatalf("expected stored event on fetch, got %#v", got.GetEvents())
	}
}

func TestInMemoryService_AppendEventAppliesStateDelta(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	sess, _ := svc.CreateSession(ctx, "fraud", "alice", nil, "")
	ev := core.NewMessageEvent("detector", "scored")
	ev.Actions.StateDelta = map[string]any{"last_score": 0.8}

	if _, err := svc.AppendEvent(ctx, sess, ev); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, _ := svc.GetSession(ctx, "fraud", "alice", sess.ID, nil)
	if v, ok := got.GetState("last_score"); !ok || v != 0.8 {
		t.Fatalf("expected state delta applied, got %#v", got.State)
	}
}

func TestInMemoryService_GetSessionConfigFilters(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	sess, _ := svc.CreateSession(ctx, "fraud", "alice", nil, "")
	for i := 0; i < 5; i++ {
		if _, err := svc.AppendEvent(ctx, sess, core.NewUserMessageEvent("run", "msg")); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	got, err := svc.GetSession(ctx, "fraud", "alice", sess.ID, &core.GetSessionConfig{NumRecentEvents: 2})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("expected 2 recent events, got %d", len(got.Events))
	}

	all, _ := svc.GetSession(ctx, "fraud", "alice", sess.ID, nil)
	cut := all.Events[2].Timestamp
	after, err := svc.GetSession(ctx, "fraud", "alice", sess.ID, &core.GetSessionConfig{AfterTimestamp: cut})
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	for _, ev := range after.Events {
		if !ev.Timestamp.After(cut) {
			t.Fatalf("expected only events after cutoff, got %v", ev.Timestamp)
		}
	}
}

func TestInMemoryService_UsersIndependent(t *testing.T) {
	svc := NewInMemoryService()
	ctx := context.Background()

	if _, err := svc.CreateSession(ctx, "fraud", "alice", nil, "s1"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	summaries, _ := svc.ListSessions(ctx, "fraud", "bob")
	if len(summaries) != 0 {
		t.Fatalf("expected no sessions for bob, got %d", len(summaries))
	}
}
