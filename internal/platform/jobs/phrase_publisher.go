package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/gematria-field/api/internal/services"
)

const eventTypePhraseSaved = "phrase.saved"

// PubSubPhrasePublisher publishes phrase.saved events to a Pub/Sub topic.
type PubSubPhrasePublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ services.PhraseEventPublisher = (*PubSubPhrasePublisher)(nil)

// NewPubSubPhrasePublisher constructs a publisher over topic.
func NewPubSubPhrasePublisher(topic *pubsub.Topic) (*PubSubPhrasePublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub phrase publisher: topic is required")
	}
	return &PubSubPhrasePublisher{topic: topic, marshal: json.Marshal}, nil
}

// PublishPhraseSaved sends the event and waits for the server-assigned message id.
func (p *PubSubPhrasePublisher) PublishPhraseSaved(ctx context.Context, event services.PhraseSavedEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub phrase publisher: not initialised")
	}
	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal phrase event: %w", err)
	}

	attrs := map[string]string{"eventType": eventTypePhraseSaved}
	setAttr(attrs, "eventId", event.EventID)
	setAttr(attrs, "phraseId", event.PhraseID)
	setAttr(attrs, "phraseKey", event.PhraseKey)

	result := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish phrase event: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages and stops the topic's background goroutines.
func (p *PubSubPhrasePublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
