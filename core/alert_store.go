package core

import "time"

// Alert records one compromised-card signal raised during a scoring turn.
type Alert struct {
	ID         string    `json:"id"`
	CardNumber string    `json:"card_number"`
	Likelihood float64   `json:"likelihood"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// AlertStore defines persistence + retrieval for alert history so the agent
// can consult previously flagged cards across turns. Implementations must be
// safe for concurrent use.
type AlertStore interface {
	Record(cardNumber string, alert Alert) error
	Search(cardNumber string, limit int) ([]Alert, error)
	Delete(cardNumber, alertID string) error
}
