package publish_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard-io/fraudguard/internal/testutil"
	"github.com/fraudguard-io/fraudguard/memory"
	"github.com/fraudguard-io/fraudguard/publish"
	"github.com/fraudguard-io/fraudguard/tool"
)

const (
	recordTopic = "projects/demo/topics/txn-record"
	alertTopic  = "projects/demo/topics/compromised-cards"
)

func TestPublishRecordTool_Success(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	assert.Equal(t, "publish_record", pt.Name())

	toolCtx := testutil.NewToolContext()
	payload := `{"transaction_id":"t-1","fraud_likelihood":0.1}`

	result, err := pt.Call(toolCtx, map[string]any{"topic": recordTopic, "json_payload": payload})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result)

	msgs := pub.MessagesFor(recordTopic)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, payload, string(msgs[0].Data))
	assert.Nil(t, toolCtx.Actions().AlertCard)
}

func TestPublishRecordTool_InvalidJSON(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	_, err := pt.Call(testutil.NewToolContext(), map[string]any{"topic": recordTopic, "json_payload": "{not json"})
	require.Error(t, err)

	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Empty(t, pub.Messages())
}

func TestPublishRecordTool_MalformedTopic(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	_, err := pt.Call(testutil.NewToolContext(), map[string]any{"topic": "txn-record", "json_payload": `{}`})
	require.Error(t, err)

	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "PUBLISH_ERROR", toolErr.Code)
	assert.Empty(t, pub.Messages())
}

func TestPublishRecordTool_FailureReturnsEmptyObject(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	pub.Err = errors.New("transport down")
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	// A failed publish must not abort the scoring turn.
	result, err := pt.Call(testutil.NewToolContext(), map[string]any{"topic": recordTopic, "json_payload": `{}`})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result)
}

func TestPublishRecordTool_AlertTopicSignalsAndRecords(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	alerts := memory.NewInMemoryStore()
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	toolCtx := testutil.NewToolContext(func(o *testutil.RunContextOptions) { o.Alerts = alerts })
	payload := `{"credit_card_number":"4111","fraud_likelihood":0.95,"fraud_reason":"cross-country ip sequence"}`

	_, err := pt.Call(toolCtx, map[string]any{"topic": alertTopic, "json_payload": payload})
	require.NoError(t, err)

	require.NotNil(t, toolCtx.Actions().AlertCard)
	assert.Equal(t, "4111", *toolCtx.Actions().AlertCard)

	found, err := alerts.Search("4111", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 0.95, found[0].Likelihood)
	assert.Equal(t, "cross-country ip sequence", found[0].Reason)
}

func TestPublishRecordTool_NonAlertTopicDoesNotSignal(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	alerts := memory.NewInMemoryStore()
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	toolCtx := testutil.NewToolContext(func(o *testutil.RunContextOptions) { o.Alerts = alerts })
	payload := `{"credit_card_number":"4111","fraud_likelihood":0.95}`

	_, err := pt.Call(toolCtx, map[string]any{"topic": recordTopic, "json_payload": payload})
	require.NoError(t, err)

	assert.Nil(t, toolCtx.Actions().AlertCard)
	found, err := alerts.Search("4111", 0)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestPublishRecordTool_AlertPayloadWithoutCard(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	pt := publish.NewPublishRecordTool(pub, alertTopic)

	toolCtx := testutil.NewToolContext()
	_, err := pt.Call(toolCtx, map[string]any{"topic": alertTopic, "json_payload": `{"fraud_likelihood":0.9}`})
	require.NoError(t, err)
	assert.Nil(t, toolCtx.Actions().AlertCard)
}

func TestMemoryPublisher_CopiesData(t *testing.T) {
	pub := publish.NewMemoryPublisher()
	buf := []byte(`{"a":1}`)
	require.NoError(t, pub.Publish(t.Context(), recordTopic, buf))

	buf[1] = 'x'
	assert.JSONEq(t, `{"a":1}`, string(pub.Messages()[0].Data))
}
