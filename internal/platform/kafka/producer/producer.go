// Package producer publishes records to Kafka through franz-go and waits for
// the broker acknowledgement of each one.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrClosed is returned by Produce and Health after Close.
var ErrClosed = errors.New("producer is closed")

const closeTimeout = 10 * time.Second

// Message is one record to publish. Headers are written sorted by key.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type Option func(*settings)

type settings struct {
	logger          *slog.Logger
	clientID        string
	acks            kgo.Acks
	retries         int
	deliveryTimeout time.Duration
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func WithClientID(id string) Option {
	return func(s *settings) { s.clientID = id }
}

// WithLeaderAck trades durability for latency. Idempotent writes are turned
// off since they need acks from all in-sync replicas.
func WithLeaderAck() Option {
	return func(s *settings) { s.acks = kgo.LeaderAck() }
}

func WithDeliveryTimeout(d time.Duration) Option {
	return func(s *settings) { s.deliveryTimeout = d }
}

// Producer is safe for concurrent use.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
	closed atomic.Bool
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	var brokers []string
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// New builds a producer for brokers. kgo dials lazily, so an unreachable
// broker surfaces on the first Produce or Health call, not here.
func New(brokers []string, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	s := settings{
		logger:          slog.New(slog.DiscardHandler),
		clientID:        "phonebook",
		acks:            kgo.AllISRAcks(),
		retries:         3,
		deliveryTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(s.clientID),
		kgo.RequiredAcks(s.acks),
		kgo.RecordRetries(s.retries),
		kgo.RecordDeliveryTimeout(s.deliveryTimeout),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	}
	if s.acks != kgo.AllISRAcks() {
		kopts = append(kopts, kgo.DisableIdempotentWrite())
	}

	client, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, logger: s.logger}, nil
}

// Produce publishes msg and blocks until it is acknowledged or ctx ends.
func (p *Producer) Produce(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrClosed
	}
	rec := &kgo.Record{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: recordHeaders(msg.Headers),
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}
	return nil
}

func recordHeaders(h map[string]string) []kgo.RecordHeader {
	if len(h) == 0 {
		return nil
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]kgo.RecordHeader, len(keys))
	for i, k := range keys {
		out[i] = kgo.RecordHeader{Key: k, Value: []byte(h[k])}
	}
	return out
}

// Health pings the seed brokers.
func (p *Producer) Health(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.client.Ping(ctx)
}

// Close flushes pending records and releases the client. Repeated calls are
// no-ops.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}
