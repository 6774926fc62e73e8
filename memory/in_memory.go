package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/fraudguard-io/fraudguard/core"
)

// InMemoryStore is a volatile core.AlertStore implementation keeping alert
// history in a process local map keyed by card number. It is safe for
// concurrent access and best suited for tests or single-process deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	alerts map[string][]core.Alert
}

// NewInMemoryStore constructs an empty in-memory alert store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{alerts: make(map[string][]core.Alert)}
}

// Record appends an alert to the card's history, assigning an id and
// timestamp when missing.
func (s *InMemoryStore) Record(cardNumber string, alert core.Alert) error {
	if cardNumber == "" {
		return fmt.Errorf("card number must not be empty")
	}

	if alert.ID == "" {
		alert.ID = core.NewID()
	}
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	alert.CardNumber = cardNumber

	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[cardNumber] = append(s.alerts[cardNumber], alert)

	return nil
}

// Search returns up to limit alerts for the card, most recent first.
// limit <= 0 means no limit.
func (s *InMemoryStore) Search(cardNumber string, limit int) ([]core.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.alerts[cardNumber]
	res := make([]core.Alert, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		res = append(res, stored[i])
		if limit > 0 && len(res) >= limit {
			break
		}
	}

	return res, nil
}

// Delete removes one alert from the card's history.
func (s *InMemoryStore) Delete(cardNumber, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.alerts[cardNumber]
	for i, alert := range stored {
		if alert.ID == alertID {
			s.alerts[cardNumber] = append(stored[:i:i], stored[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("alert %q not found for card %q", alertID, cardNumber)
}
