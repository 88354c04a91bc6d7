// Copyright 2024 Griddeck UG - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@griddeck.io
//

package audit

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/griddeck/griddeck/core/logger"
)

// KafkaNotifier writes events to a Kafka topic, keyed by resource so changes
// of one table stay in order within a partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

var _ Notifier = &KafkaNotifier{}

// NewKafkaNotifier returns a notifier producing to the given brokers and
// topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	logger.Default().Infoln("audit notifications to kafka topic:", topic)
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Notify produces one event.
func (n *KafkaNotifier) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Resource),
		Value: body,
	})
	if err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("cannot produce audit event", event.EventID)
	}
	return err
}

// Close flushes and closes the producer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
