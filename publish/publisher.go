package publish

import (
	"context"
	"sync"
)

// Publisher sends one payload to a named topic and waits for the server ack.
// Implementations provide at-most-once delivery: no retries are added here;
// a failed publish is reported to the caller and the message is dropped.
type Publisher interface {
	// Publish delivers data to the topic, blocking until the transport has
	// acknowledged the message or failed.
	Publish(ctx context.Context, topic string, data []byte) error

	// Close releases transport resources. The Publisher must not be used
	// after Close returns.
	Close() error
}

// Message is one captured publish, retained by MemoryPublisher for assertions.
type Message struct {
	Topic string
	Data  []byte
}

// MemoryPublisher is an in-process Publisher retaining every published
// message. It is safe for concurrent use and intended for tests and examples.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message

	// Err, when non-nil, is returned by every Publish call. Lets tests
	// exercise failure paths.
	Err error
}

// NewMemoryPublisher constructs an empty capture publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Publish records the message (or fails with the configured Err).
func (p *MemoryPublisher) Publish(_ context.Context, topic string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	p.messages = append(p.messages, Message{Topic: topic, Data: buf})

	return nil
}

// Close implements Publisher.
func (p *MemoryPublisher) Close() error { return nil }

// Messages returns a copy of all captured messages.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]Message, len(p.messages))
	copy(res, p.messages)
	return res
}

// MessagesFor returns captured messages published to one topic.
func (p *MemoryPublisher) MessagesFor(topic string) []Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	var res []Message
	for _, m := range p.messages {
		if m.Topic == topic {
			res = append(res, m)
		}
	}
	return res
}
