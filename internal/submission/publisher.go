package submission

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one submission on its way downstream.
type Message struct {
	// Key is the case id so every submission of a case lands on one partition.
	Key       string
	Value     []byte
	Digest    string
	Priority  string
	Reference string
}

// Publisher delivers submissions downstream.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// MemoryPublisher records messages in process. Used when no brokers are
// configured and in tests.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg.Value = append([]byte(nil), msg.Value...)
	p.messages = append(p.messages, msg)
	return nil
}

// Messages returns a copy of everything published so far.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.messages...)
}

// KafkaPublisher produces submissions synchronously so the case only moves
// on once the broker has acknowledged the record.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

func NewKafkaPublisher(client *kgo.Client, topic string) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(msg.Key),
		Value: msg.Value,
		Headers: []kgo.RecordHeader{
			{Key: "digest", Value: []byte(msg.Digest)},
			{Key: "priority", Value: []byte(msg.Priority)},
			{Key: "reference", Value: []byte(msg.Reference)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce submission %s: %w", msg.Key, err)
	}
	return nil
}
