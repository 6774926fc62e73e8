package runner_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard-io/fraudguard/agent"
	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/memory"
	"github.com/fraudguard-io/fraudguard/model"
	"github.com/fraudguard-io/fraudguard/publish"
	"github.com/fraudguard-io/fraudguard/runner"
	"github.com/fraudguard-io/fraudguard/session"
)

const txnRecord = `{"credit_card_number": "4111", "receiver": "Macy's", "amount": 100.05}`

func newScoringRunner(t *testing.T, llm model.Model, optFns ...func(o *runner.Options)) *runner.Runner {
	t.Helper()
	return runner.New("fraud", agent.NewDetector(llm), optFns...)
}

func TestRunner_ScoreCreatesSessionImplicitly(t *testing.T) {
	llm := model.NewMockModel("mock-scorer", "mock")
	llm.AddResponse(txnRecord, `{"fraud_likelihood": 0.1}`)

	r := newScoringRunner(t, llm)
	ctx := context.Background()

	answer, err := r.Score(ctx, "alice", txnRecord)
	require.NoError(t, err)
	assert.Contains(t, answer, "fraud_likelihood")

	summaries, err := r.Sessions().ListSessions(ctx, "fraud", "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
}

func TestRunner_RepeatedScoresReuseSession(t *testing.T) {
	llm := model.NewMockModel("mock-scorer", "mock")

	r := newScoringRunner(t, llm)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := r.Score(ctx, "alice", txnRecord)
		require.NoError(t, err)
	}

	summaries, err := r.Sessions().ListSessions(ctx, "fraud", "alice")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	// Each run appends the user record and the final answer.
	sess, err := r.Sessions().GetSession(ctx, "fraud", "alice", "", nil)
	require.NoError(t, err)
	assert.Len(t, sess.GetEvents(), 6)
}

func TestRunner_UsersGetSeparateSessions(t *testing.T) {
	llm := model.NewMockModel("mock-scorer", "mock")

	r := newScoringRunner(t, llm)
	ctx := context.Background()

	_, err := r.Score(ctx, "alice", txnRecord)
	require.NoError(t, err)
	_, err = r.Score(ctx, "bob", txnRecord)
	require.NoError(t, err)

	for _, user := range []string{"alice", "bob"} {
		summaries, err := r.Sessions().ListSessions(ctx, "fraud", user)
		require.NoError(t, err)
		assert.Len(t, summaries, 1, "user %s", user)
	}
}

func TestRunner_PersistsToolEvents(t *testing.T) {
	alertTopic := publish.TopicPath("demo", "compromised-cards")
	pub := publish.NewMemoryPublisher()
	alerts := memory.NewInMemoryStore()

	llm := model.NewMockModel("mock-scorer", "mock")
	llm.AddToolCall(txnRecord, "publish_record", map[string]any{
		"topic":        alertTopic,
		"json_payload": `{"credit_card_number":"4111","fraud_likelihood":0.9,"fraud_reason":"velocity"}`,
	})
	llm.AfterToolResponse = `{"fraud_likelihood": 0.9}`

	detector := agent.NewDetector(llm)
	detector.RegisterTool(publish.NewPublishRecordTool(pub, alertTopic))

	r := runner.New("fraud", detector, func(o *runner.Options) {
		o.Alerts = alerts
	})
	ctx := context.Background()

	answer, err := r.Score(ctx, "alice", txnRecord)
	require.NoError(t, err)
	assert.Contains(t, answer, "0.9")

	// user record + tool call + tool response + final answer
	sess, err := r.Sessions().GetSession(ctx, "fraud", "alice", "", nil)
	require.NoError(t, err)
	events := sess.GetEvents()
	require.Len(t, events, 4)
	assert.Len(t, events[1].GetFunctionCalls(), 1)
	assert.Len(t, events[2].GetFunctionResponses(), 1)

	found, err := alerts.Search("4111", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestRunner_WrapsRawSessionService(t *testing.T) {
	llm := model.NewMockModel("mock-scorer", "mock")
	store := session.NewInMemoryService()

	r := newScoringRunner(t, llm, func(o *runner.Options) {
		o.Sessions = store
	})

	// Resolving with no session id must create instead of failing.
	sess, err := r.Sessions().GetSession(context.Background(), "fraud", "alice", "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
}

func TestRunner_RunEmitsEvents(t *testing.T) {
	llm := model.NewMockModel("mock-scorer", "mock")
	llm.AddResponse(txnRecord, "ok")

	r := newScoringRunner(t, llm)

	content := core.Content{Role: "user", Parts: []core.Part{core.TextPart{Text: txnRecord}}}
	runID, eventsCh, errorsCh, err := r.Run(context.Background(), "alice", content)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	var finals int
	for ev := range eventsCh {
		if ev.IsFinalResponse() {
			finals++
		}
	}
	require.NoError(t, <-errorsCh)
	assert.Equal(t, 1, finals)
}

func TestRunner_CancelUnknownRun(t *testing.T) {
	llm := model.NewMockModel("mock-scorer", "mock")
	r := newScoringRunner(t, llm)

	require.Error(t, r.Cancel("missing"))
}
