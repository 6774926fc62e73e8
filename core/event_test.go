package core

import "testing"

func TestEventConstructors(t *testing.T) {
	ev := NewUserMessageEvent("run-1", "hello")
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Fatalf("expected id and timestamp to be set")
	}
	if ev.Author != "user" || ev.InvocationID != "run-1" {
		t.Fatalf("unexpected identity: %q %q", ev.Author, ev.InvocationID)
	}
	if ev.Content == nil || ev.Content.Role != "user" {
		t.Fatalf("expected user content")
	}
}

func TestEventFunctionCallAccessors(t *testing.T) {
	ev := NewFunctionCallEvent("FraudDetector", "publish_record", `{"topic":"t"}`)

	calls := ev.GetFunctionCalls()
	if len(calls) != 1 || calls[0].Name != "publish_record" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if len(ev.GetFunctionResponses()) != 0 {
		t.Fatalf("expected no responses")
	}
	if ev.IsFinalResponse() {
		t.Fatalf("call event must not be final")
	}
}

func TestEventFunctionResponse(t *testing.T) {
	ev := NewFunctionResponseEvent("FraudDetector", "fc-1", "publish_record", map[string]any{}, nil)

	responses := ev.GetFunctionResponses()
	if len(responses) != 1 || responses[0].ID != "fc-1" {
		t.Fatalf("unexpected responses: %+v", responses)
	}
	if responses[0].Error != "" {
		t.Fatalf("expected no error, got %q", responses[0].Error)
	}
	if ev.Content.Role != "tool" {
		t.Fatalf("expected tool role, got %q", ev.Content.Role)
	}
}

func TestEventIsFinalResponse(t *testing.T) {
	final := NewMessageEvent("FraudDetector", "done")
	if !final.IsFinalResponse() {
		t.Fatalf("text event should be final")
	}

	partial := true
	final.Partial = &partial
	if final.IsFinalResponse() {
		t.Fatalf("partial event must not be final")
	}
}

func TestModelLimiter(t *testing.T) {
	ml := NewModelLimiter(2)
	if err := ml.Increment(); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := ml.Increment(); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if err := ml.Increment(); err == nil {
		t.Fatalf("expected limit error on third call")
	}
	if ml.Count() != 3 {
		t.Fatalf("count = %d, want 3", ml.Count())
	}

	unlimited := NewModelLimiter(0)
	for i := 0; i < 10; i++ {
		if err := unlimited.Increment(); err != nil {
			t.Fatalf("unlimited limiter errored: %v", err)
		}
	}
	if unlimited.Remaining() != -1 {
		t.Fatalf("unlimited Remaining = %d, want -1", unlimited.Remaining())
	}
}
