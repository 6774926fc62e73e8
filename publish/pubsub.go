package publish

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
)

// GooglePublisher implements Publisher over Cloud Pub/Sub. Topics are
// addressed by full resource path ("projects/<id>/topics/<name>"). One client
// is kept per project and one topic handle per path, mirroring the lifetime
// of the process. Publish settings flush every message immediately
// (CountThreshold 1) so a scoring turn never leaves records buffered.
type GooglePublisher struct {
	mu      sync.Mutex
	clients map[string]*pubsub.Client // keyed by project id
	topics  map[string]*pubsub.Topic  // keyed by full topic path
}

// NewGooglePublisher constructs a publisher with empty caches. Clients are
// dialed lazily on first publish to each project.
func NewGooglePublisher() *GooglePublisher {
	return &GooglePublisher{
		clients: make(map[string]*pubsub.Client),
		topics:  make(map[string]*pubsub.Topic),
	}
}

// Publish delivers data to the topic path and blocks until the server ack.
func (p *GooglePublisher) Publish(ctx context.Context, topicPath string, data []byte) error {
	topic, err := p.topicFor(ctx, topicPath)
	if err != nil {
		return err
	}

	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish to %s: %w", topicPath, err)
	}

	return nil
}

// Close stops all cached topics and closes all clients.
func (p *GooglePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, topic := range p.topics {
		topic.Stop()
	}
	p.topics = make(map[string]*pubsub.Topic)

	var firstErr error
	for project, client := range p.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing client for project %s: %w", project, err)
		}
	}
	p.clients = make(map[string]*pubsub.Client)

	return firstErr
}

// topicFor returns the cached topic handle for the path, dialing the project
// client and configuring publish settings on first use.
func (p *GooglePublisher) topicFor(ctx context.Context, topicPath string) (*pubsub.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if topic, ok := p.topics[topicPath]; ok {
		return topic, nil
	}

	project, topicID, err := splitTopicPath(topicPath)
	if err != nil {
		return nil, err
	}

	client, ok := p.clients[project]
	if !ok {
		client, err = pubsub.NewClient(ctx, project)
		if err != nil {
			return nil, fmt.Errorf("dialing pub/sub for project %s: %w", project, err)
		}
		p.clients[project] = client
	}

	topic := client.Topic(topicID)
	// One message per batch: flush immediately instead of waiting for
	// further records that may never arrive within the turn.
	topic.PublishSettings.CountThreshold = 1
	p.topics[topicPath] = topic

	return topic, nil
}

// splitTopicPath parses "projects/<project>/topics/<topic>".
func splitTopicPath(topicPath string) (project, topicID string, err error) {
	parts := strings.Split(topicPath, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "topics" || parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("malformed topic path %q (want projects/<project>/topics/<topic>)", topicPath)
	}
	return parts[1], parts[3], nil
}

// TopicPath assembles the full resource path for a project/topic pair.
func TopicPath(project, topicID string) string {
	return fmt.Sprintf("projects/%s/topics/%s", project, topicID)
}
