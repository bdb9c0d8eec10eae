// Package publish streams row outcomes to Kafka for downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"devicelink/internal/batch"
	"devicelink/internal/platform/logger"
	pstrings "devicelink/pkg/platform/strings"
	"devicelink/pkg/requestcontext"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Flush(ctx context.Context) error
	Close()
}

// Event is the JSON value of each published record.
type Event struct {
	RunID            string    `json:"run_id"`
	Row              int       `json:"row"`
	DeviceIdentifier string    `json:"device_identifier"`
	CJRRCatNum       string    `json:"cjrr_cat_num"`
	Manufacturer     string    `json:"manufacturer"`
	DeviceName       string    `json:"device_name"`
	LicenceNumber    string    `json:"licence_number"`
	MDALLState       string    `json:"mdall_state"`
	Kind             string    `json:"kind"`
	DeviceID         string    `json:"device_id,omitempty"`
	PublishedAt      time.Time `json:"published_at"`
}

// KafkaPublisher produces one record per row, keyed by the cleaned catalogue
// number so repeats of a number land on one partition.
type KafkaPublisher struct {
	producer Producer
	admin    *kadm.Client
	topic    string
	logger   *slog.Logger
}

type Option func(*KafkaPublisher)

func WithLogger(l *slog.Logger) Option {
	return func(p *KafkaPublisher) {
		p.logger = l
	}
}

// NewKafka connects a franz-go client to brokers.
func NewKafka(brokers []string, topic string, opts ...Option) (*KafkaPublisher, error) {
	brokers = pstrings.DedupeAndTrim(brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	p := New(client, topic, opts...)
	p.admin = kadm.NewClient(client)
	return p, nil
}

// EnsureTopic creates the topic with broker default partitions and
// replication when it does not exist yet. Publishers built with New have no
// admin client and skip the check.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context) error {
	if p.admin == nil {
		return nil
	}
	resp, err := p.admin.CreateTopic(ctx, -1, -1, nil, p.topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	return nil
}

// New wraps an existing producer.
func New(producer Producer, topic string, opts ...Option) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, result batch.Result) error {
	runID := requestcontext.RunID(ctx)
	event := Event{
		RunID:            runID,
		Row:              result.Row,
		DeviceIdentifier: result.DeviceIdentifier,
		CJRRCatNum:       result.CJRRCatNum,
		Manufacturer:     result.Manufacturer,
		DeviceName:       result.Outcome.DeviceName(),
		LicenceNumber:    result.Outcome.Licence(),
		MDALLState:       result.Outcome.State(),
		Kind:             string(result.Outcome.Kind),
		DeviceID:         result.Outcome.DeviceID,
		PublishedAt:      requestcontext.Now(ctx).UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode outcome event: %w", err)
	}

	key := result.CJRRCatNum
	if key == "" {
		key = result.DeviceIdentifier
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce outcome for row %d: %w", result.Row, err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	defer p.producer.Close()
	if err := p.producer.Flush(ctx); err != nil {
		p.logger.WarnContext(ctx, "flush kafka producer failed", "error", err)
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}
