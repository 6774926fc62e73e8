package publish

import (
	"encoding/json"
	"time"

	"github.com/fraudguard-io/fraudguard/core"
	"github.com/fraudguard-io/fraudguard/tool"
)

// NewPublishRecordTool exposes the Publisher as the publish_record tool the
// detector calls to emit augmented transactions and compromised-card alerts.
//
// The tool is synchronous: it waits for the publish to complete before
// returning. By contract it returns an empty object on success AND on
// failure — a failed publish is logged but never aborts the scoring turn.
// When a card number is found in the payload of a message published to
// alertTopic, the alert is recorded and the turn flagged via the event
// actions so consumers can react.
func NewPublishRecordTool(p Publisher, alertTopic string) *tool.FunctionTool {
	return tool.NewFunctionTool(
		"publish_record",
		"Publish a JSON string payload to a message topic. "+
			"The topic must be a full path of the form projects/<project>/topics/<name>.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic": map[string]any{
					"type":        "string",
					"description": "The full topic path (e.g. 'projects/id/topics/name')",
				},
				"json_payload": map[string]any{
					"type":        "string",
					"description": "The JSON string data to publish",
				},
			},
			"required": []string{"topic", "json_payload"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			topic, _ := args["topic"].(string)
			payload, _ := args["json_payload"].(string)

			logger := toolCtx.Logger()
			logger.Info("publish.attempt", "topic", topic, "payload_bytes", len(payload))

			if !json.Valid([]byte(payload)) {
				return nil, tool.NewToolError("publish_record", "json_payload is not valid JSON", "VALIDATION_ERROR")
			}
			if _, _, err := splitTopicPath(topic); err != nil {
				return nil, tool.NewToolError("publish_record", err.Error(), "PUBLISH_ERROR")
			}

			start := time.Now()
			if err := p.Publish(toolCtx.Context(), topic, []byte(payload)); err != nil {
				// Matching the delivery contract: report, don't fail the turn.
				logger.Error("publish.failed", "topic", topic, "error", err.Error(), "duration_ms", time.Since(start).Milliseconds())
				return map[string]any{}, nil
			}

			logger.Info("publish.success", "topic", topic, "duration_ms", time.Since(start).Milliseconds())

			if topic == alertTopic && alertTopic != "" {
				if card := extractAlertCard(payload); card != "" {
					recordAlert(toolCtx, card, payload)
				}
			}

			return map[string]any{}, nil
		},
	)
}

// extractAlertCard pulls the card number out of an alert payload.
func extractAlertCard(payload string) string {
	var record map[string]any
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return ""
	}
	card, _ := record["credit_card_number"].(string)
	return card
}

// recordAlert flags the turn and stores the alert for future recall. Failures
// are logged only; alert history is best effort.
func recordAlert(toolCtx *core.ToolContext, card, payload string) {
	toolCtx.SignalAlert(card)

	var record struct {
		Likelihood float64 `json:"fraud_likelihood"`
		Reason     string  `json:"fraud_reason"`
	}
	_ = json.Unmarshal([]byte(payload), &record)

	if err := toolCtx.RecordAlert(card, core.Alert{
		CardNumber: card,
		Likelihood: record.Likelihood,
		Reason:     record.Reason,
	}); err != nil {
		toolCtx.Logger().Warn("publish.alert_record_failed", "card_number", card, "error", err.Error())
	}
}
