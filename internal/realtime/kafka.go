package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/courtvision/prediction-api/internal/models"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const defaultKafkaWriteTimeout = 2 * time.Second

// KafkaPublisher emits every completed prediction as a record keyed by
// match id. Other broadcasts are ignored.
type KafkaPublisher struct {
	writer       MessageWriter
	writeTimeout time.Duration
	logger       *zap.SugaredLogger
}

// NewKafkaPublisher writes asynchronously; delivery failures are logged from
// the writer's completion callback.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	sugar := logger.Sugar()
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				sugar.Warnw("Failed to deliver prediction", "match_id", string(m.Key), "error", err)
			}
		},
	}, logger)
}

func NewKafkaPublisherWithWriter(w MessageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, writeTimeout: defaultKafkaWriteTimeout, logger: logger.Sugar()}
}

func (k *KafkaPublisher) Broadcast(ctx context.Context, channel string, payload interface{}) {
	if channel != models.ChannelAnalysis {
		return
	}
	ev, ok := payload.(models.AnalysisEvent)
	if !ok || ev.Event != models.EventAnalysisCompleted || ev.Prediction == nil {
		return
	}

	value, err := json.Marshal(ev.Prediction)
	if err != nil {
		k.logger.Errorw("Failed to encode prediction", "match_id", ev.MatchID, "error", err)
		return
	}
	// A stalled broker must not hold up the analysis that is announcing.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.writeTimeout)
	defer cancel()
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.MatchID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "run_id", Value: []byte(ev.RunID)},
			{Key: "synthesis_source", Value: []byte(ev.Prediction.Source)},
		},
	})
	if err != nil {
		k.logger.Warnw("Failed to publish prediction", "match_id", ev.MatchID, "error", err)
	}
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
