package tool

import (
	"github.com/fraudguard-io/fraudguard/core"
)

const defaultAlertSearchLimit = 10

// NewSearchAlertHistoryTool returns a tool letting the model recall prior
// compromised-card alerts for a card number. Repeated activity on a card that
// was already flagged is a strong fraud indicator, so the detector is
// encouraged to consult this before scoring.
func NewSearchAlertHistoryTool() *FunctionTool {
	return NewFunctionTool(
		"search_alert_history",
		"Look up previously raised compromised-card alerts for a credit card number. "+
			"Returns the most recent alerts first, each with likelihood, reason and timestamp.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"card_number": map[string]any{
					"type":        "string",
					"description": "The credit card number to look up",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of alerts to return (default 10)",
				},
			},
			"required": []string{"card_number"},
		},
		func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			cardNumber, _ := args["card_number"].(string)
			if cardNumber == "" {
				return nil, NewToolError("search_alert_history", "card_number is required", "VALIDATION_ERROR")
			}

			limit := defaultAlertSearchLimit
			if raw, ok := args["limit"].(float64); ok && raw > 0 {
				limit = int(raw)
			}

			alerts, err := toolCtx.SearchAlerts(cardNumber, limit)
			if err != nil {
				return nil, err
			}

			return map[string]any{"alerts": alerts, "count": len(alerts)}, nil
		},
	)
}
